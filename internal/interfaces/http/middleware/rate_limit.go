package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitWindow = time.Minute

// RateLimitKey is the Redis counter for a client within the current window
func RateLimitKey(clientIP string, now time.Time) string {
	return "rate_limit:" + clientIP + ":" + strconv.FormatInt(now.Unix()/int64(rateLimitWindow.Seconds()), 10)
}

// RateLimit allows perMinute requests per client IP using a fixed Redis
// window. Requests pass when Redis is unavailable.
func RateLimit(redisClient *redis.Client, perMinute int, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}

		now := time.Now()
		key := RateLimitKey(c.ClientIP(), now)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		pipe := redisClient.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rateLimitWindow)
		if _, err := pipe.Exec(ctx); err != nil {
			log.WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		current := int(incr.Val())
		remaining := perMinute - current
		if remaining < 0 {
			remaining = 0
		}
		reset := now.Truncate(rateLimitWindow).Add(rateLimitWindow)

		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if current > perMinute {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
			abort(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		c.Next()
	}
}
