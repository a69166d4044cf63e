package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.FullPath()).
					Str("request_id", RequestIDFrom(c)).
					Msg("panic recovered")
				abortWithError(c, nil)
			}
		}()
		c.Next()
	}
}
