package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// healthCheck answers 503 only when the store is down. A cache outage is
// reported but the service keeps working without it.
func (h *handlers) healthCheck(startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		store := probe(ctx, h.store)
		if store != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
			h.logger.Warn().Msg("health check: store unavailable")
		}

		c.JSON(code, gin.H{
			"status":     status,
			"store":      store,
			"cache":      probe(ctx, h.cache),
			"started_at": startedAt.Format(time.RFC3339),
			"uptime":     time.Since(startedAt).Round(time.Second).String(),
		})
	}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}
