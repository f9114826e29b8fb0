package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
)

type activeUsers map[uint64]bool

func (a activeUsers) IsActive(_ context.Context, id uint64) (bool, error) {
    if id == 99 {
        return false, errors.New("db down")
    }
    return a[id], nil
}

func TestRequireActive(t *testing.T) {
    e := echo.New()
    protected(e, JWTAuth(testSecret), RequireActive(activeUsers{1: true, 2: false}))

    cases := []struct {
        name   string
        id     uint64
        status int
    }{
        {"Given an active account Then 200", 1, http.StatusOK},
        {"Given a deactivated account Then 403", 2, http.StatusForbidden},
        {"Given a deleted account Then 403", 7, http.StatusForbidden},
        {"Given the lookup fails Then 500", 99, http.StatusInternalServerError},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            req := httptest.NewRequest(http.MethodGet, "/p", nil)
            req.Header.Set("Authorization", "Bearer "+token(t, tc.id, "student"))
            rec := httptest.NewRecorder()
            e.ServeHTTP(rec, req)
            if rec.Code != tc.status {
                t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
            }
        })
    }

    t.Run("Given no checker Then the check is skipped", func(t *testing.T) {
        e := echo.New()
        protected(e, JWTAuth(testSecret), RequireActive(nil))
        req := httptest.NewRequest(http.MethodGet, "/p", nil)
        req.Header.Set("Authorization", "Bearer "+token(t, 2, "student"))
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d", rec.Code)
        }
    })
}
