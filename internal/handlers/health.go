package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campushub/internal/logger"
	"campushub/internal/store"
)

// Healthz pings every backing store and answers 503 if one is down.
func Healthz(log logger.Logger, pingers ...store.Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				log.Warn("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
