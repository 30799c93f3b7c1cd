package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/service"
)

// DashboardHandler serves the admin dashboard snapshot on demand. The same
// snapshot is pushed live to the dashboard group on stat-affecting events.
type DashboardHandler struct {
	stats *service.StatsService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(stats *service.StatsService) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// Stats GET /staff/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	snapshot, err := h.stats.Recompute(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snapshot})
}
