package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
)

// Metrics records request count and latency by route template
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
