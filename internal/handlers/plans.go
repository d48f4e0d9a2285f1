package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/clusterplan/internal/declaration"
	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/models"
)

// ComputePlans plans a deployment and commits the result
func (h *Handler) ComputePlans(c *fiber.Ctx) error {
	return h.runPlans(c, true)
}

// PreviewPlans plans a deployment without storing or announcing it
func (h *Handler) PreviewPlans(c *fiber.Ctx) error {
	return h.runPlans(c, false)
}

func (h *Handler) runPlans(c *fiber.Ctx, commit bool) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}

	var d *declaration.Deployment
	if isYAML(c) {
		d, err = declaration.ParseYAML(body)
	} else {
		d, err = declaration.ParseJSON(body)
	}
	if err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()
	plans, err := h.planService.Compute(ctx, d, commit)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if commit {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(models.PlanRunResponse{
		Plans:     plans,
		Committed: commit,
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

// ListPlans returns the current plan of every cluster
func (h *Handler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.planService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if plans == nil {
		plans = []*models.ClusterPlan{}
	}
	return c.JSON(models.PlanListResponse{Plans: plans, Count: len(plans)})
}

// GetPlan returns the current plan of one cluster
func (h *Handler) GetPlan(c *fiber.Ctx) error {
	plan, err := h.planService.Get(c.UserContext(), c.Params("cluster"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plan)
}

// GetPlanHistory lists the committed plan ids of one cluster
func (h *Handler) GetPlanHistory(c *fiber.Ctx) error {
	cluster := c.Params("cluster")
	ids, err := h.planService.History(c.UserContext(), cluster)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.PlanHistoryResponse{Cluster: cluster, PlanIDs: ids})
}

// DeletePlan forgets the plans of one cluster
func (h *Handler) DeletePlan(c *fiber.Ctx) error {
	if err := h.planService.Delete(c.UserContext(), c.Params("cluster")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
