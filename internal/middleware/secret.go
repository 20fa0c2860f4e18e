package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireWebhookSecret rejects update pushes that do not carry the shared
// secret in the given header. An empty configured secret disables the check
// (development mode).
func RequireWebhookSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "Missing or invalid webhook secret.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
