package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/marks-ledger-api/internal/models"
	"github.com/noah-isme/marks-ledger-api/pkg/response"
)

type healthService interface {
	Check(ctx context.Context) models.Health
}

// HealthHandler reports service status.
type HealthHandler struct {
	health healthService
}

// NewHealthHandler constructs HealthHandler.
func NewHealthHandler(health healthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Health godoc
// @Summary Service health
// @Description Counts are "unknown" when the store could not be queried.
// @Tags Health
// @Produce json
// @Success 200 {object} models.Health
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response.OK(c, h.health.Check(c.Request.Context()))
}
