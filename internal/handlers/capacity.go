package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"

	"github.com/soltixdb/clusterplan/internal/declaration"
)

// ValidateCapacity parses one cluster declaration and reports the
// capacity it resolves to, without planning
func (h *Handler) ValidateCapacity(c *fiber.Ctx) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}

	var cluster declaration.Cluster
	if isYAML(c) {
		err = yaml.Unmarshal(body, &cluster)
	} else {
		err = json.Unmarshal(body, &cluster)
	}
	if err != nil {
		return badRequest(c, "INVALID_SPEC", "Invalid request body: "+err.Error())
	}

	resp, err := h.planService.ValidateCluster(cluster)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
