package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/model"
    "github.com/iliyamo/study-abroad-marketplace/internal/utils"
)

// AccessCookie is the cookie login sets next to the JSON token. Browser
// redirects back from the checkout page cannot carry an Authorization
// header, so JWTAuth falls back to it.
const AccessCookie = "access_token"

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id" // uint64
    CtxRole   = "role"    // model.UserRole
)

// JWTAuth returns an Echo middleware that validates the access token and
// injects the user id and role into the request context. The token is read
// from the "Authorization: Bearer" header or, failing that, from the
// access_token cookie.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := bearerToken(c)
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            role, err := model.ParseUserRole(claims.Role)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            c.Set(CtxUserID, claims.UserID)
            c.Set(CtxRole, role)
            return next(c)
        }
    }
}

func bearerToken(c echo.Context) string {
    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    }
    if ck, err := c.Cookie(AccessCookie); err == nil {
        return ck.Value
    }
    return ""
}
