package middleware

import (
	"time"

	"github.com/ds124wfegd/eventbook/internal/monitoring"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per matched route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitoring.TrackHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
