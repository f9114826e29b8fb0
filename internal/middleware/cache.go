package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/study-abroad-marketplace/internal/config"
)

// cachedHeaders are the response headers replayed on a hit.
var cachedHeaders = []string{echo.HeaderContentType, "Content-Language", "Vary"}

// cacheEntry is what one cached catalogue response looks like in Redis.
type cacheEntry struct {
    Status int               `json:"s"`
    Header map[string]string `json:"h,omitempty"`
    Body   []byte            `json:"b"`
}

// bodyRecorder tees the response body up to limit bytes. overflow is set
// once the body no longer fits, and such responses are not stored.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKey hashes the request identity under cfg.Prefix. Query parameters
// are re-encoded in sorted order so ?a=1&b=2 and ?b=2&a=1 share an entry.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var id string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        id = c.Path()
    case "method_route":
        id = r.Method + " " + c.Path()
    case "method_route_query":
        id = r.Method + " " + c.Path() + "?" + r.URL.Query().Encode()
    default: // "route_query"
        id = r.URL.Path + "?" + r.URL.Query().Encode()
    }
    sum := sha256.Sum256([]byte(id))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

func (e cacheEntry) replay(c echo.Context) error {
    for k, v := range e.Header {
        c.Response().Header().Set(k, v)
    }
    c.Response().Header().Set("X-Cache", "HIT")
    c.Response().WriteHeader(e.Status)
    _, err := c.Response().Write(e.Body)
    return err
}

// NewResponseCache caches successful public catalogue responses in Redis.
// Requests carrying credentials bypass it, and a response that sets a
// cookie is never stored.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Minute
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[req.Method] || req.Header.Get(echo.HeaderAuthorization) != "" {
                return next(c)
            }
            key := cacheKey(cfg, c)

            if raw, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
                var hit cacheEntry
                if json.Unmarshal(raw, &hit) == nil {
                    return hit.replay(c)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow || c.Response().Header().Get("Set-Cookie") != "" {
                return nil
            }

            entry := cacheEntry{Status: rec.status, Body: rec.buf.Bytes(), Header: map[string]string{}}
            for _, h := range cachedHeaders {
                if v := c.Response().Header().Get(h); v != "" {
                    entry.Header[h] = v
                }
            }
            raw, err := json.Marshal(entry)
            if err != nil {
                return nil
            }
            // The request context may already be cancelled by the time the
            // client has its answer.
            ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
                c.Logger().Warnf("[cache] store %s: %v", key, err)
            }
            return nil
        }
    }
}

// PurgeCache deletes every cached response under prefix. Admin writes to
// the catalogue call it so searches never serve a stale fee.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
    if rdb == nil {
        return nil
    }
    iter := rdb.Scan(ctx, 0, prefix+":*", 200).Iterator()
    var batch []string
    for iter.Next(ctx) {
        batch = append(batch, iter.Val())
        if len(batch) == 200 {
            if err := rdb.Del(ctx, batch...).Err(); err != nil {
                return err
            }
            batch = batch[:0]
        }
    }
    if err := iter.Err(); err != nil {
        return err
    }
    if len(batch) > 0 {
        return rdb.Del(ctx, batch...).Err()
    }
    return nil
}
