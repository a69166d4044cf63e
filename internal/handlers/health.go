package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Environment string            `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks)), Environment: h.cfg.Environment}
	for _, hc := range h.checks {
		if err := hc.check(ctx); err != nil {
			resp.Checks[hc.name] = "error"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			h.log.Error().Err(err).Str("check", hc.name).Msg("health check failed")
			continue
		}
		resp.Checks[hc.name] = "ok"
	}

	c.JSON(status, resp)
}
