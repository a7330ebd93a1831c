package server

import (
	"strconv"
	"time"

	"workshops/internal/metrics"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no registered route, so probing
// for random paths cannot grow the path label set.
const unmatchedRoute = "unmatched"

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.RecordHTTPRequest(
			c.Request.Method,
			routeLabel(c),
			statusClass(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}

// routeLabel is the route template (/api/admin/registrations/:id), never the
// concrete path with ids or tokens in it.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
