package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/clusterplan/internal/models"
)

// Health reports liveness. It returns 503 when the plan store does not answer.
func (h *Handler) Health(c *fiber.Ctx) error {
	status, code := "healthy", fiber.StatusOK
	if h.planService != nil {
		if err := h.planService.Ready(c.UserContext()); err != nil {
			h.logger.Warn("Health check failed", "error", err)
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   h.version,
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
