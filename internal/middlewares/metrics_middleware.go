package middlewares

import (
	"strconv"
	"time"

	"ciphersql/internal/observability"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per route template.
func Metrics(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status()/100) + "xx"

	observability.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	observability.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
}
