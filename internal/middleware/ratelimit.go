package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/hotelhq/room-reservation/internal/config"
)

// fixedWindowScript counts requests in the current window and returns the
// count together with the remaining window TTL.  Running it as a script
// keeps INCR and EXPIRE atomic so a crashed request cannot leave an
// immortal key.
var fixedWindowScript = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if n == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return { n, ttl }
`)

// NewRateLimiter returns a fixed-window per-client rate limiter backed by
// Redis.  The client key combines IP and authenticated user so a shared
// NAT does not starve staff on other accounts.  When Redis is unavailable
// the limiter fails open and lets the request through.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			uid := "anon"
			if v := c.Get("user_id"); v != nil {
				uid = fmt.Sprint(v)
			}
			key := fmt.Sprintf("%s:%s:%s", cfg.Prefix, ip, uid)

			ctx := c.Request().Context()
			vals, err := fixedWindowScript.Run(ctx, rdb, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
			if err != nil || len(vals) != 2 {
				return next(c)
			}
			count, ttlMs := vals[0], vals[1]

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				secs := int((time.Duration(ttlMs) * time.Millisecond).Seconds() + 0.999)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}
