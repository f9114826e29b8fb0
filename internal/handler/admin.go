package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/study-abroad-marketplace/internal/middleware"
    "github.com/iliyamo/study-abroad-marketplace/internal/model"
    "github.com/iliyamo/study-abroad-marketplace/internal/repository"
    "github.com/iliyamo/study-abroad-marketplace/internal/service"
)

// AdminHandler serves the admin console API. Routes are mounted behind
// RequireRole(admin); the services check the role again.
type AdminHandler struct {
    Admin *service.AdminService
    Apps  *service.ApplicationService
    // Rdb and CachePrefix let catalogue writes drop cached listings.
    Rdb         *redis.Client
    CachePrefix string
}

func NewAdminHandler(admin *service.AdminService, apps *service.ApplicationService, rdb *redis.Client, cachePrefix string) *AdminHandler {
    return &AdminHandler{Admin: admin, Apps: apps, Rdb: rdb, CachePrefix: cachePrefix}
}

// ----- DTOs -----

type decideReq struct {
    Status string `json:"status" validate:"required"`
    Notes  string `json:"notes" validate:"max=5000"`
}

type userActiveReq struct {
    IsActive *bool `json:"is_active" validate:"required"`
}

type institutionReq struct {
    Name                 string `json:"name" validate:"required,max=200"`
    ShortName            string `json:"short_name" validate:"max=50"`
    Description          string `json:"description"`
    Country              string `json:"country" validate:"required,max=100"`
    CountryCode          string `json:"country_code" validate:"required,len=2"`
    City                 string `json:"city" validate:"required,max=100"`
    Website              string `json:"website" validate:"omitempty,url,max=255"`
    Type                 string `json:"type" validate:"omitempty,oneof=university college institute school"`
    WorldRanking         *int   `json:"world_ranking" validate:"omitempty,min=1"`
    ApplicationFeeCents  int64  `json:"application_fee_cents" validate:"min=0"`
    AcceptsInternational *bool  `json:"accepts_international"`
    IsActive             *bool  `json:"is_active"`
    IsVerified           bool   `json:"is_verified"`
}

func (r institutionReq) input() service.InstitutionInput {
    return service.InstitutionInput{
        Name:                 r.Name,
        ShortName:            r.ShortName,
        Description:          r.Description,
        Country:              r.Country,
        CountryCode:          r.CountryCode,
        City:                 r.City,
        Website:              r.Website,
        Type:                 r.Type,
        WorldRanking:         r.WorldRanking,
        ApplicationFeeCents:  r.ApplicationFeeCents,
        AcceptsInternational: r.AcceptsInternational == nil || *r.AcceptsInternational,
        IsActive:             r.IsActive == nil || *r.IsActive,
        IsVerified:           r.IsVerified,
    }
}

type programReq struct {
    Name                  string `json:"name" validate:"required,max=200"`
    Code                  string `json:"code" validate:"max=50"`
    DegreeType            string `json:"degree_type" validate:"required,max=50"`
    FieldOfStudy          string `json:"field_of_study" validate:"required,max=100"`
    DurationMonths        int    `json:"duration_months" validate:"min=0,max=120"`
    TuitionFeeCents       int64  `json:"tuition_fee_cents" validate:"min=0"`
    Currency              string `json:"currency" validate:"omitempty,len=3"`
    ScholarshipsAvailable bool   `json:"scholarships_available"`
    SeatsAvailable        *int   `json:"seats_available" validate:"omitempty,min=0"`
    IsActive              *bool  `json:"is_active"`
}

func (r programReq) input() service.ProgramInput {
    return service.ProgramInput{
        Name:                  r.Name,
        Code:                  r.Code,
        DegreeType:            r.DegreeType,
        FieldOfStudy:          r.FieldOfStudy,
        DurationMonths:        r.DurationMonths,
        TuitionFeeCents:       r.TuitionFeeCents,
        Currency:              r.Currency,
        ScholarshipsAvailable: r.ScholarshipsAvailable,
        SeatsAvailable:        r.SeatsAvailable,
        IsActive:              r.IsActive == nil || *r.IsActive,
    }
}

// purge drops cached catalogue responses after a write. Failures only
// leave stale entries until their TTL runs out.
func (h *AdminHandler) purge(c echo.Context) {
    if h.Rdb == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
    defer cancel()
    if err := middleware.PurgeCache(ctx, h.Rdb, h.CachePrefix); err != nil {
        c.Logger().Warnf("purge catalogue cache: %v", err)
    }
}

func (h *AdminHandler) Stats(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    out, err := h.Admin.Stats(ctx, principal(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// Users lists accounts. Query: q, role, active (true|false), page, per_page.
func (h *AdminHandler) Users(c echo.Context) error {
    f := repository.UserFilter{Search: c.QueryParam("q"), Pagination: pagination(c)}
    if raw := c.QueryParam("role"); raw != "" {
        r, err := model.ParseUserRole(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        f.Role = r
    }
    f.Active = queryActive(c)
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Admin.Users(ctx, principal(c), f)
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}

func (h *AdminHandler) SetUserActive(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "user id")
    }
    var req userActiveReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    u, err := h.Admin.SetUserActive(ctx, principal(c), id, *req.IsActive)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, u)
}

// Applications lists every application.
// Query: status, institution_id, q, from, to, page, per_page.
func (h *AdminHandler) Applications(c echo.Context) error {
    f := repository.ApplicationFilter{
        InstitutionID: queryUint(c, "institution_id"),
        Query:         c.QueryParam("q"),
        Pagination:    pagination(c),
    }
    if raw := c.QueryParam("status"); raw != "" {
        st, err := model.ParseApplicationStatus(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        f.Status = st
    }
    from, err := queryDate(c, "from")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    to, err := queryDate(c, "to")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if to != nil {
        end := to.AddDate(0, 0, 1)
        to = &end
    }
    f.CreatedFrom, f.CreatedTo = from, to

    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Apps.List(ctx, principal(c), f)
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}

// Decide records a review decision on an application.
func (h *AdminHandler) Decide(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "application id")
    }
    var req decideReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    app, err := h.Apps.Decide(ctx, principal(c), id, req.Status, req.Notes)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, app)
}

func (h *AdminHandler) CreateInstitution(c echo.Context) error {
    var req institutionReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    inst, err := h.Admin.CreateInstitution(ctx, principal(c), req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusCreated, inst)
}

func (h *AdminHandler) UpdateInstitution(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "institution id")
    }
    var req institutionReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    inst, err := h.Admin.UpdateInstitution(ctx, principal(c), id, req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusOK, inst)
}

func (h *AdminHandler) CreateProgram(c echo.Context) error {
    instID, ok := paramID(c, "id")
    if !ok {
        return badID(c, "institution id")
    }
    var req programReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    prog, err := h.Admin.CreateProgram(ctx, principal(c), instID, req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusCreated, prog)
}

// UpdateProgram replaces a program; is_active false withdraws it from the
// catalogue.
func (h *AdminHandler) UpdateProgram(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "program id")
    }
    var req programReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    prog, err := h.Admin.UpdateProgram(ctx, principal(c), id, req.input())
    if err != nil {
        return writeError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusOK, prog)
}

// Institutions lists every institution, inactive ones included.
// Query: q, country, type, active, page, per_page.
func (h *AdminHandler) Institutions(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Admin.Institutions(ctx, principal(c), repository.InstitutionFilter{
        Query:       c.QueryParam("q"),
        CountryCode: strings.TrimSpace(c.QueryParam("country")),
        Type:        strings.TrimSpace(c.QueryParam("type")),
        Active:      queryActive(c),
        Pagination:  pagination(c),
    })
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}

// Programs lists every program. Query: institution_id, field, degree_type,
// active, page, per_page.
func (h *AdminHandler) Programs(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Admin.Programs(ctx, principal(c), repository.ProgramFilter{
        InstitutionID: queryUint(c, "institution_id"),
        Field:         c.QueryParam("field"),
        DegreeType:    strings.TrimSpace(c.QueryParam("degree_type")),
        Active:        queryActive(c),
        Pagination:    pagination(c),
    })
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}

func (h *AdminHandler) UserDetail(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return badID(c, "user id")
    }
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    out, err := h.Admin.UserDetail(ctx, principal(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// Analytics reports revenue by month and the busiest institutions.
// Query: months (default 12), top (default 10).
func (h *AdminHandler) Analytics(c echo.Context) error {
    months, _ := strconv.Atoi(c.QueryParam("months"))
    top, _ := strconv.Atoi(c.QueryParam("top"))
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    out, err := h.Admin.Analytics(ctx, principal(c), months, top)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// Logs lists the audit trail. Query: admin_id, action, target_type,
// target_id, page, per_page.
func (h *AdminHandler) Logs(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()
    items, page, err := h.Admin.Logs(ctx, principal(c), repository.AdminLogFilter{
        AdminID:    queryUint(c, "admin_id"),
        Action:     strings.TrimSpace(c.QueryParam("action")),
        TargetType: strings.TrimSpace(c.QueryParam("target_type")),
        TargetID:   queryUint(c, "target_id"),
        Pagination: pagination(c),
    })
    if err != nil {
        return writeError(c, err)
    }
    return listJSON(c, items, page)
}
