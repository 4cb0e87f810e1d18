package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/socialink/internal/monitoring"
	"github.com/charlesng35/socialink/pkg/response"
)

// HealthHandler exposes liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager()
	}
	return &HealthHandler{manager: manager}
}

// GET /health
func (h *HealthHandler) Overall(c *gin.Context) {
	h.write(c, h.manager.Overall)
}

// GET /health/live
func (h *HealthHandler) Liveness(c *gin.Context) {
	h.write(c, h.manager.Liveness)
}

// GET /health/ready
func (h *HealthHandler) Readiness(c *gin.Context) {
	h.write(c, h.manager.Readiness)
}

func (h *HealthHandler) write(c *gin.Context, evaluate func(context.Context) monitoring.HealthReport) {
	report := evaluate(requestContext(c))
	status := http.StatusOK
	if report.Status == monitoring.StatusDown {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}
