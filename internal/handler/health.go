package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "gorm.io/gorm"
)

// HealthHandler reports liveness and the reachability of the database and,
// when configured, Redis.
type HealthHandler struct {
    DB  *gorm.DB
    Rdb *redis.Client
}

// Health returns "ok" while the process is serving.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready pings the backing stores. A down Redis only degrades rate limiting
// and caching, so it is reported but does not fail the check.
func (h *HealthHandler) Ready(c echo.Context) error {
    ctx, cancel := requestContext(c, requestTimeout)
    defer cancel()

    out := echo.Map{"database": "ok"}
    sqlDB, err := h.DB.DB()
    if err == nil {
        err = sqlDB.PingContext(ctx)
    }
    if err != nil {
        out["database"] = err.Error()
        return c.JSON(http.StatusServiceUnavailable, out)
    }
    switch {
    case h.Rdb == nil:
        out["redis"] = "disabled"
    case h.Rdb.Ping(ctx).Err() != nil:
        out["redis"] = "unreachable"
    default:
        out["redis"] = "ok"
    }
    return c.JSON(http.StatusOK, out)
}
