package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/model"
    "github.com/iliyamo/study-abroad-marketplace/internal/repository"
    "github.com/iliyamo/study-abroad-marketplace/internal/service"
)

// ApplicationHandler serves the student side of the application lifecycle.
type ApplicationHandler struct {
    Apps     *service.ApplicationService
    Payments *service.PaymentService
}

func NewApplicationHandler(apps *service.ApplicationService, payments *service.PaymentService) *ApplicationHandler {
    return &ApplicationHandler{Apps: apps, Payments: payments}
}

type createApplicationReq struct {
    PersonalStatement  string `json:"personal_statement" validate:"max=10000"`
    StatementOfPurpose string `json:"statement_of_purpose" validate:"max=10000"`
}

// Create opens a draft application for the program in the path.
func (h *ApplicationHandler) Create(c echo.Context) error {
    programID, ok := paramID(c, "id")
    if !ok {
        return badID(c, "program id")
    }
    var req createApplicationReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    app, err := h.Apps.Create(ctx, principal(c), programID, service.ApplicationInput{
        PersonalStatement:  req.PersonalStatement,
        StatementOfPurpose: req.StatementOfPurpose,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, app)
}

// ListMine lists the caller's applications. Query: status, page, per_page.
func (h *ApplicationHandler) ListMine(c echo.Context) error {
    f := repository.ApplicationFilter{Pagination: pagination(c)}
    if raw := c.QueryParam("status"); raw != "" {
        st, err := model.ParseApplicationStatus(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        f.Status = st
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Apps.ListMine(ctx, principal(c), f)
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}

func (h *ApplicationHandler) Get(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "application id")
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    app, err := h.Apps.Get(ctx, principal(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, app)
}

// Status returns the status projection polled by the student dashboard.
func (h *ApplicationHandler) Status(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "application id")
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    view, err := h.Apps.StatusOf(ctx, principal(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

func (h *ApplicationHandler) Submit(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "application id")
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    app, err := h.Apps.Submit(ctx, principal(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, app)
}

// Dashboard returns the caller's recent applications and payments with
// per-status counts of the applications.
func (h *ApplicationHandler) Dashboard(c echo.Context) error {
    p := principal(c)
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()

    apps, appPage, err := h.Apps.ListMine(ctx, p, repository.ApplicationFilter{Pagination: repository.Pagination{PerPage: 100}})
    if err != nil {
        return writeError(c, err)
    }
    pays, _, err := h.Payments.History(ctx, p, repository.PaymentFilter{Pagination: repository.Pagination{PerPage: 10}})
    if err != nil {
        return writeError(c, err)
    }
    counts := make(map[model.ApplicationStatus]int, len(model.ApplicationStatuses()))
    for _, st := range model.ApplicationStatuses() {
        counts[st] = 0
    }
    for _, a := range apps {
        counts[a.Status]++
    }
    return c.JSON(http.StatusOK, echo.Map{
        "applications":       apps,
        "applications_total": appPage.Total,
        "status_counts":      counts,
        "recent_payments":    pays,
    })
}
