package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ragchat-io/ragchat/internal/domain"
)

// Auth returns an API key authentication middleware. An empty key disables
// the check.
func Auth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.ErrorResponse{
				Error:     "Unauthorized",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		c.Next()
	}
}
