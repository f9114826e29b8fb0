package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// RequireRole aborts with 403 unless the role JWTAuth stored in the
// context is one of roles. It must run after JWTAuth.
func RequireRole(roles ...model.UserRole) echo.MiddlewareFunc {
    allowed := make(map[model.UserRole]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(CtxRole).(model.UserRole)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
