package middleware

import (
	"github.com/gin-gonic/gin"

	"bookmarket/internal/apperr"
)

// RequireAdmin must run after Session.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			abortWithError(c, apperr.Authentication("authentication required"))
			return
		}
		if !identity.Admin {
			abortWithError(c, apperr.Authorization("admin access required"))
			return
		}
		c.Next()
	}
}
