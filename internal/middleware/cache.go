package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/hotelhq/room-reservation/internal/config"
)

// cachedResponse is the envelope stored in Redis for a cached endpoint
// response.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyRecorder tees the response body into a buffer while writing it to the
// client, up to the configured limit.  Oversized bodies mark the response
// uncacheable rather than storing a truncated copy.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.buf.Len()+len(b) > w.limit {
			w.overflow = true
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cacheKey hashes method, route and query into a fixed-size Redis key.  The
// hotel claim is part of the key so tenants never see each other's cached
// listings.
func cacheKey(prefix string, c echo.Context) string {
	tail := fmt.Sprintf("%s|%s|%s|%v",
		c.Request().Method, c.Path(), c.Request().URL.RawQuery, c.Get("hotel_id"))
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// NewResponseCache caches successful responses of the configured methods in
// Redis.  Cache misses fall through to the handler and store the outcome;
// any Redis failure degrades to serving uncached.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cr cachedResponse
				if json.Unmarshal(raw, &cr) == nil {
					c.Response().Header().Set(echo.HeaderContentType, cr.ContentType)
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(cr.Status)
					_, _ = c.Response().Write(cr.Body)
					return nil
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status == http.StatusOK && !rec.overflow {
				cr := cachedResponse{
					Status:      rec.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        rec.buf.Bytes(),
				}
				if raw, err := json.Marshal(cr); err == nil {
					_ = rdb.Set(ctx, key, raw, ttl).Err()
				}
			}
			return nil
		}
	}
}
