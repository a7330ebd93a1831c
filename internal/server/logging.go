package server

import (
	"net/http"
	"time"

	"workshops/internal/logger"

	"github.com/gin-gonic/gin"
)

// quietRoutes are polled by load balancers and prometheus and only logged on failure.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLoggingMiddleware logs one line per request. The query string is
// left out since private workshop tokens and admin filters travel in URLs.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := routeLabel(c)
		if quietRoutes[route] && status < http.StatusInternalServerError {
			return
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"bytes_in", c.Request.ContentLength,
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, "errors", errs.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request failed", fields...)
		case status == http.StatusTooManyRequests || status == http.StatusUnauthorized:
			logger.Warn("HTTP request refused", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
