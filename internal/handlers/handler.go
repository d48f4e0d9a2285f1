// Package handlers implements the planner's HTTP API on fiber.
package handlers

import (
	"mime"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/services"
	"github.com/soltixdb/clusterplan/internal/utils"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger      *logging.Logger
	planService *services.PlanService
	version     string
}

// New creates a new handler instance
func New(logger *logging.Logger, planService *services.PlanService, version string) *Handler {
	return &Handler{
		logger:      logger,
		planService: planService,
		version:     version,
	}
}

// respondError writes err as an ErrorResponse with the status of its code
func respondError(c *fiber.Ctx, err error) error {
	se := services.FromError(err)
	return c.Status(services.HTTPStatus(se.Code)).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    se.Code,
			Message: se.Message,
			Path:    c.Path(),
			Details: se.Details,
		},
	})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Path:    c.Path(),
		},
	})
}

// readBody returns the request body. Empty and oversized bodies are
// rejected with a fiber error rendered by the error handler.
func readBody(c *fiber.Ctx) ([]byte, error) {
	body := c.Body()
	if len(body) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Request body is required")
	}
	if len(body) > utils.MaxDeclarationBytes {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "Declaration exceeds the size limit")
	}
	return body, nil
}

// isYAML reports whether the request body is declared as YAML
func isYAML(c *fiber.Ctx) bool {
	mediaType, _, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	if err != nil {
		return false
	}
	return strings.HasSuffix(mediaType, "/yaml") || strings.HasSuffix(mediaType, "/x-yaml")
}
