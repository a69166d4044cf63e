package middleware

import (
	"github.com/gin-gonic/gin"

	"bookmarket/internal/apperr"
)

func abortWithError(c *gin.Context, err error) {
	status, body := apperr.HTTP(err)
	c.AbortWithStatusJSON(status, body)
}
