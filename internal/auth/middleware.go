package auth

import (
	"net/http"

	"workshops/internal/api"

	"github.com/gin-gonic/gin"
)

const adminKey = "admin"

// RequireAdmin rejects requests without a valid admin session cookie.
func RequireAdmin(cookie *Cookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookie.Name)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Admin session required"})
			return
		}

		if !cookie.Verify(raw) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Invalid admin session"})
			return
		}

		c.Set(adminKey, true)
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}
