package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campushub/internal/logger"
)

// RequestLogger logs one line per request once the handler chain returns.
func RequestLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		l.Info(
			"got HTTP request",
			"method", c.Request.Method,
			"uri", c.Request.RequestURI,
			"duration", time.Since(start),
			"status", c.Writer.Status(),
			"size", c.Writer.Size(),
		)
	}
}

// Recover turns a panic into a JSON 500 instead of a dropped connection.
func Recover(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				l.Error("panic recovered", "path", c.FullPath(), "panic", fmt.Sprint(r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal",
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
