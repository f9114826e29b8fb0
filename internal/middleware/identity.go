package middleware

// identity.go holds the accessors for the caller identity JWTAuth stores in
// the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c echo.Context) uint64 {
    id, _ := c.Get(CtxUserID).(uint64)
    return id
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) model.UserRole {
    r, _ := c.Get(CtxRole).(model.UserRole)
    return r
}

// userKey is the rate limit key part for the caller.
func userKey(c echo.Context) string {
    if id := UserID(c); id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
