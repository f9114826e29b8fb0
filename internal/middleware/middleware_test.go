package middleware

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/study-abroad-marketplace/internal/config"
    "github.com/iliyamo/study-abroad-marketplace/internal/model"
    "github.com/iliyamo/study-abroad-marketplace/internal/utils"
)

const testSecret = "test-secret"

func protected(e *echo.Echo, mw ...echo.MiddlewareFunc) {
    e.GET("/p", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"user_id": UserID(c), "role": Role(c)})
    }, mw...)
}

func token(t *testing.T, id uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, id, role, 5)
    if err != nil {
        t.Fatalf("token: %v", err)
    }
    return tok.Token
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    protected(e, JWTAuth(testSecret))

    cases := []struct {
        name   string
        setup  func(r *http.Request)
        status int
    }{
        {"Given no token Then 401", func(r *http.Request) {}, http.StatusUnauthorized},
        {"Given a garbage token Then 401", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
        {"Given a token with an unknown role Then 401", func(r *http.Request) {
            r.Header.Set("Authorization", "Bearer "+token(t, 3, "root"))
        }, http.StatusUnauthorized},
        {"Given a bearer token Then 200", func(r *http.Request) {
            r.Header.Set("Authorization", "Bearer "+token(t, 3, "student"))
        }, http.StatusOK},
        {"Given the access cookie Then 200", func(r *http.Request) {
            r.AddCookie(&http.Cookie{Name: AccessCookie, Value: token(t, 3, "student")})
        }, http.StatusOK},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            req := httptest.NewRequest(http.MethodGet, "/p", nil)
            tc.setup(req)
            rec := httptest.NewRecorder()
            e.ServeHTTP(rec, req)
            if rec.Code != tc.status {
                t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
            }
        })
    }
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    protected(e, JWTAuth(testSecret), RequireRole(model.RoleAdmin))

    for role, want := range map[string]int{"admin": http.StatusOK, "student": http.StatusForbidden} {
        req := httptest.NewRequest(http.MethodGet, "/p", nil)
        req.Header.Set("Authorization", "Bearer "+token(t, 1, role))
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != want {
            t.Fatalf("role %s: status = %d, want %d", role, rec.Code, want)
        }
    }
}

func TestDisabledLayersPassThrough(t *testing.T) {
    e := echo.New()
    protected(e,
        NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
        NewResponseCache(config.CacheConfig{Enabled: true}, nil),
    )
    for i := 0; i < 3; i++ {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p", nil))
        if rec.Code != http.StatusOK {
            t.Fatalf("request %d: status = %d", i, rec.Code)
        }
    }
}

func TestCacheKeyIgnoresQueryOrder(t *testing.T) {
    e := echo.New()
    cfg := config.CacheConfig{Prefix: "catalogue", KeyStrategy: "route_query"}
    key := func(target string) string {
        return cacheKey(cfg, e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder()))
    }
    a := key("/v1/programs?field=law&page=2")
    if b := key("/v1/programs?page=2&field=law"); a != b {
        t.Fatalf("keys differ: %s vs %s", a, b)
    }
    if c := key("/v1/programs?page=3&field=law"); a == c {
        t.Fatal("different queries share a key")
    }
    if !strings.HasPrefix(a, "catalogue:") {
        t.Fatalf("key %s is outside the purge prefix", a)
    }
}

func TestBodyRecorderOverflow(t *testing.T) {
    rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
    _, _ = rec.Write([]byte("abc"))
    if rec.overflow {
        t.Fatal("overflow before the limit")
    }
    _, _ = rec.Write([]byte("de"))
    if !rec.overflow || rec.buf.Len() != 0 {
        t.Fatalf("overflow=%v buffered=%d", rec.overflow, rec.buf.Len())
    }
}

func TestRateKeyAutoStrategy(t *testing.T) {
    e := echo.New()
    cfg := config.RateLimitConfig{Prefix: "rl:api", KeyStrategy: "auto"}

    req := httptest.NewRequest(http.MethodGet, "/p", nil)
    req.RemoteAddr = "192.0.2.7:5555"
    c := e.NewContext(req, httptest.NewRecorder())
    if got := buildRateKey(cfg, c); got != "rl:api:ip:192.0.2.7" {
        t.Fatalf("anonymous key = %s", got)
    }
    c.Set(CtxUserID, uint64(42))
    if got := buildRateKey(cfg, c); got != "rl:api:user:42" {
        t.Fatalf("signed in key = %s", got)
    }
}

func TestRequestIDIsUUID(t *testing.T) {
    e := echo.New()
    e.Use(RequestID())
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
    if _, err := uuid.Parse(rec.Header().Get(echo.HeaderXRequestID)); err != nil {
        t.Fatalf("request id %q: %v", rec.Header().Get(echo.HeaderXRequestID), err)
    }

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set(echo.HeaderXRequestID, "upstream-7")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    if got := rec.Header().Get(echo.HeaderXRequestID); got != "upstream-7" {
        t.Fatalf("incoming id replaced by %q", got)
    }
}
