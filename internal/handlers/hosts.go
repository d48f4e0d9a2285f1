package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/clusterplan/internal/models"
)

// ListHosts returns the hosts registered in the inventory
func (h *Handler) ListHosts(c *fiber.Ctx) error {
	hosts, err := h.planService.Hosts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if hosts == nil {
		hosts = []models.HostRecord{}
	}
	return c.JSON(models.HostListResponse{Hosts: hosts, Count: len(hosts)})
}

// RetireHost marks a host for removal. Planning then moves its roles
// elsewhere while it keeps serving.
func (h *Handler) RetireHost(c *fiber.Ctx) error {
	return h.setRetired(c, true)
}

// UnretireHost clears a retirement mark
func (h *Handler) UnretireHost(c *fiber.Ctx) error {
	return h.setRetired(c, false)
}

func (h *Handler) setRetired(c *fiber.Ctx, retired bool) error {
	hostID := c.Params("host")
	if err := h.planService.SetRetired(c.UserContext(), hostID, retired); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"host_id": hostID, "retired": retired})
}
