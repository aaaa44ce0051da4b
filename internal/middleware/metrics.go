package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/pkg/metrics"
)

// Metrics records request counts and latency labelled by route pattern, so
// file ids never reach the label set.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
