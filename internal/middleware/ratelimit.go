package middleware

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/study-abroad-marketplace/internal/config"
)

// tokenBucketScript refills the bucket continuously (refill_tokens per
// interval_ms, fractional) and takes one token. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3]) / tonumber(ARGV[4])
local now = tonumber(ARGV[1])

local tokens = tonumber(redis.call('HGET', KEYS[1], 't'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'ts'))
if tokens == nil or stamp == nil then
  tokens, stamp = capacity, now
end
tokens = math.min(capacity, tokens + math.max(0, now - stamp) * rate)

local allowed, wait = 0, 0
if tokens >= 1 then
  allowed, tokens = 1, tokens - 1
else
  wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 't', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {allowed, math.floor(tokens), wait}
`)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket limits requests with a Redis token bucket per key. Each
// profile (cfg.Name) keeps its own buckets under cfg.Prefix. Without Redis,
// or when Redis errors, requests pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    tag := "[ratelimit:" + cfg.Name + "]"
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            res, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                cfg.TTL.Milliseconds(),
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                c.Logger().Warnf("%s key=%s failing open: %v", tag, key, err)
                return next(c)
            }
            allowed, remaining, retryMs := res[0] == 1, res[1], res[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if allowed {
                return next(c)
            }

            secs := (retryMs + 999) / 1000
            h.Set("Retry-After", strconv.FormatInt(secs, 10))
            if cfg.Debug {
                c.Logger().Infof("%s block key=%s retry=%dms", tag, key, retryMs)
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// buildRateKey derives the bucket key. The default strategy buckets signed
// in callers by user and anonymous ones (login, webhooks) by address.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()

    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = []string{"ip", ip}
    case "user":
        parts = []string{"user", userKey(c)}
    case "ip_route":
        parts = []string{"ip", ip, "route", route}
    case "user_route":
        parts = []string{"user", userKey(c), "route", route}
    case "ip_user_route":
        parts = []string{"ip", ip, "user", userKey(c), "route", route}
    default: // "auto"
        if id := UserID(c); id != 0 {
            parts = []string{"user", strconv.FormatUint(id, 10)}
        } else {
            parts = []string{"ip", ip}
        }
    }
    return cfg.Prefix + ":" + strings.Join(parts, ":")
}
