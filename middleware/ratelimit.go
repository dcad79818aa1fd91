package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"listings-cms/internal/logger"
	"listings-cms/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// CounterStore is the part of a Redis client the limiters use.
type CounterStore interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// windowIncr increments KEYS[1] and gives it a TTL of ARGV[1] ms whenever it
// has none, so a counter can never outlive its window.
var windowIncr = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

func incrWindow(ctx context.Context, rdb CounterStore, key string, window time.Duration) (int64, error) {
	return windowIncr.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int64()
}

// RateLimitMiddleware counts requests per client IP and route in fixed windows.
// It fails open when Redis is unreachable.
func RateLimitMiddleware(rdb CounterStore, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + ":" + c.FullPath()
		count, err := incrWindow(c.Request.Context(), rdb, key, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if count > int64(limit) {
			tooManyRequests(c, limit, window)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		c.Next()
	}
}

// FailedLoginLimit blocks an IP after limit responses with status 401 within window.
// Successful logins do not count.
func FailedLoginLimit(rdb CounterStore, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "loginfail:" + c.ClientIP()
		ctx := c.Request.Context()

		failures, err := rdb.Get(ctx, key).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Warn("login limiter unavailable", "error", err)
			c.Next()
			return
		}
		if failures >= int64(limit) {
			tooManyRequests(c, limit, window)
			return
		}

		c.Next()

		if c.Writer.Status() != http.StatusUnauthorized {
			return
		}
		if _, err := incrWindow(ctx, rdb, key, window); err != nil {
			logger.Warn("failed to record login failure", "error", err)
		}
	}
}

func tooManyRequests(c *gin.Context, limit int, window time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))

	utils.RespondWithError(c, http.StatusTooManyRequests,
		"rate_limit_exceeded",
		"Too many requests. Please try again later.",
		gin.H{
			"retry_after": int(window.Seconds()),
			"limit":       limit,
		})
	c.Abort()
}
