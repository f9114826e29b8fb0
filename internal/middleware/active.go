package middleware

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
)

// ActiveChecker reports whether an account may still use the API. Unknown
// ids report false.
type ActiveChecker interface {
    IsActive(ctx context.Context, userID uint64) (bool, error)
}

// RequireActive rejects access tokens of accounts deactivated after the
// token was issued. It must run after JWTAuth. A nil checker disables it.
func RequireActive(users ActiveChecker) echo.MiddlewareFunc {
    if users == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            active, err := users.IsActive(c.Request().Context(), UserID(c))
            if err != nil {
                c.Logger().Errorf("active check of user %d: %v", UserID(c), err)
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
            }
            if !active {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
            }
            return next(c)
        }
    }
}
