package handler // handler defines http handlers

import (
    "context"
    "errors"
    "fmt"
    "log"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/middleware"
    "github.com/iliyamo/study-abroad-marketplace/internal/payment"
    "github.com/iliyamo/study-abroad-marketplace/internal/repository"
    "github.com/iliyamo/study-abroad-marketplace/internal/service"
)

// requestTimeout bounds the database work of one request. Payment routes
// add the provider timeout on top.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), d)
}

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct{ v *validator.Validate }

func NewRequestValidator() *RequestValidator { return &RequestValidator{v: validator.New()} }

func (rv *RequestValidator) Validate(i interface{}) error { return rv.v.Struct(i) }

// bindValid binds the body into dst and runs the struct validator. The
// returned error is already written to the response.
func bindValid(c echo.Context, dst interface{}) (bool, error) {
    if err := c.Bind(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    return true, nil
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err.Error()
    }
    parts := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        rule := fe.Tag()
        if fe.Param() != "" {
            rule += "=" + fe.Param()
        }
        parts = append(parts, strings.ToLower(fe.Field())+": "+rule)
    }
    return "invalid fields: " + strings.Join(parts, ", ")
}

// principal builds the service caller from the identity JWTAuth stored.
func principal(c echo.Context) service.Principal {
    return service.Principal{
        UserID:     middleware.UserID(c),
        Role:       middleware.Role(c),
        RemoteAddr: c.RealIP(),
    }
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

func badID(c echo.Context, name string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
}

// queryUint parses an optional unsigned query parameter; 0 when absent or bad.
func queryUint(c echo.Context, name string) uint64 {
    n, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
    return n
}

// queryCents parses an optional decimal amount (e.g. "49.50") into cents.
func queryCents(c echo.Context, name string) (*int64, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil, nil
    }
    f, err := strconv.ParseFloat(raw, 64)
    if err != nil || f < 0 {
        return nil, fmt.Errorf("invalid %s", name)
    }
    cents := int64(f*100 + 0.5)
    return &cents, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil, nil
    }
    t, err := time.Parse("2006-01-02", raw)
    if err != nil {
        return nil, fmt.Errorf("invalid %s, want YYYY-MM-DD", name)
    }
    return &t, nil
}

// queryActive reads the tri-state "active" filter: true, false or unset.
func queryActive(c echo.Context) *bool {
    var v bool
    switch strings.ToLower(c.QueryParam("active")) {
    case "true", "1":
        v = true
    case "false", "0":
        v = false
    default:
        return nil
    }
    return &v
}

func pagination(c echo.Context) repository.Pagination {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    per, _ := strconv.Atoi(c.QueryParam("per_page"))
    return repository.Pagination{Page: page, PerPage: per}
}

func listJSON(c echo.Context, items interface{}, page repository.Page) error {
    return c.JSON(http.StatusOK, echo.Map{
        "items":    items,
        "total":    page.Total,
        "page":     page.Page,
        "per_page": page.PerPage,
        "has_next": page.HasNext,
    })
}

// writeError maps service errors onto HTTP statuses.
func writeError(c echo.Context, err error) error {
    status := http.StatusInternalServerError
    switch {
    case errors.Is(err, service.ErrValidation):
        status = http.StatusBadRequest
    case errors.Is(err, service.ErrForbidden):
        status = http.StatusForbidden
    case errors.Is(err, service.ErrNotFound):
        status = http.StatusNotFound
    case errors.Is(err, service.ErrAlreadyPaid),
        errors.Is(err, service.ErrConflict),
        errors.Is(err, service.ErrInvalidTransition):
        status = http.StatusConflict
    case errors.Is(err, service.ErrNotPaid):
        status = http.StatusPaymentRequired
    case errors.Is(err, payment.ErrProviderUnavailable):
        status = http.StatusServiceUnavailable
    case errors.Is(err, service.ErrProvider):
        status = http.StatusBadGateway
    case errors.Is(err, context.DeadlineExceeded):
        status = http.StatusGatewayTimeout
    }
    if status >= http.StatusInternalServerError {
        log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
        if status == http.StatusInternalServerError {
            return c.JSON(status, echo.Map{"error": "internal error"})
        }
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}
