package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uni-ombuds/case-api/internal/service"
)

// Metrics records per-route request counts and latencies. Routes use the gin
// template path so path parameters do not explode label cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
