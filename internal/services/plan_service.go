package services

import (
	"context"
	"fmt"
	"time"

	"github.com/soltixdb/clusterplan/internal/capacity"
	"github.com/soltixdb/clusterplan/internal/declaration"
	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/metadata"
	"github.com/soltixdb/clusterplan/internal/metrics"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/queue"
	"github.com/soltixdb/clusterplan/internal/topology"
	"github.com/soltixdb/clusterplan/internal/utils"
)

// HostSource provides the host pool when a deployment declares none
type HostSource interface {
	Records(ctx context.Context) ([]models.HostRecord, error)
	Snapshot(ctx context.Context) ([]models.Host, error)
	Retire(ctx context.Context, hostID string) error
	Unretire(ctx context.Context, hostID string) error
}

// PlanService computes, stores and announces cluster plans
type PlanService struct {
	logger  *logging.Logger
	planner *topology.Planner
	store   *metadata.PlanStore
	hosts   HostSource
	events  *queue.EventPublisher
	metrics *metrics.Metrics
}

// NewPlanService creates a plan service. hosts, events and m may be nil.
func NewPlanService(
	logger *logging.Logger,
	planner *topology.Planner,
	store *metadata.PlanStore,
	hosts HostSource,
	events *queue.EventPublisher,
	m *metrics.Metrics,
) *PlanService {
	return &PlanService{
		logger:  logger,
		planner: planner,
		store:   store,
		hosts:   hosts,
		events:  events,
		metrics: m,
	}
}

// Compute plans every cluster of the deployment against the previous
// committed plans. With commit set the new plans are stored and announced.
func (s *PlanService) Compute(ctx context.Context, d *declaration.Deployment, commit bool) ([]*models.ClusterPlan, error) {
	started := time.Now()

	plans, err := s.compute(ctx, d)
	if err != nil {
		s.metrics.ObserveFailure(err)
		logging.WarnCtx(ctx, "Planning failed", "error", err, "clusters", len(d.Clusters))
		return nil, FromError(err)
	}
	s.metrics.ObserveRun(started, plans)

	if !commit {
		return plans, nil
	}

	for _, p := range plans {
		if err := s.store.Save(ctx, p); err != nil {
			return nil, FromError(fmt.Errorf("failed to store plan of '%s': %w", p.Cluster.ID, err))
		}
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.PublishTimeout)
	defer cancel()
	if err := s.events.PlansCommitted(pubCtx, plans); err != nil {
		// plans are already stored; subscribers catch up from the store
		logging.ErrorCtx(ctx, "Failed to publish plan events", "error", err)
	}

	logging.InfoCtx(ctx, "Plans committed",
		"clusters", len(plans),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return plans, nil
}

func (s *PlanService) compute(ctx context.Context, d *declaration.Deployment) ([]*models.ClusterPlan, error) {
	reqs, err := d.Requests()
	if err != nil {
		return nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, utils.InventoryTimeout)
	defer cancel()

	pool := d.Pool()
	if pool == nil {
		if s.hosts == nil {
			return nil, NewServiceError(CodeInvalidSpec, "deployment declares no hosts and no inventory is configured")
		}
		if pool, err = s.hosts.Snapshot(loadCtx); err != nil {
			return nil, unavailable("inventory", err)
		}
	}

	previous, err := s.store.LoadAll(loadCtx)
	if err != nil {
		return nil, unavailable("plan store", err)
	}

	jobs, err := s.planner.SplitPool(reqs, pool, previous)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		s.logger.Debug("Planning cluster", "job", j.String())
	}
	return s.planner.ResolveAll(ctx, jobs)
}

func unavailable(what string, err error) *ServiceError {
	return &ServiceError{
		Code:    CodeUnavailable,
		Message: fmt.Sprintf("%s unavailable: %v", what, err),
		cause:   err,
	}
}

// Get returns the current plan of a cluster
func (s *PlanService) Get(ctx context.Context, cluster string) (*models.ClusterPlan, error) {
	plan, err := s.store.Get(ctx, cluster)
	if err != nil {
		return nil, unavailable("plan store", err)
	}
	if plan == nil {
		return nil, NewServiceError(CodeNotFound, fmt.Sprintf("no plan for cluster '%s'", cluster))
	}
	return plan, nil
}

// List returns the current plans ordered by cluster id
func (s *PlanService) List(ctx context.Context) ([]*models.ClusterPlan, error) {
	plans, err := s.store.List(ctx)
	if err != nil {
		return nil, unavailable("plan store", err)
	}
	return plans, nil
}

// History returns the ids of every committed plan of a cluster
func (s *PlanService) History(ctx context.Context, cluster string) ([]string, error) {
	ids, err := s.store.History(ctx, cluster)
	if err != nil {
		return nil, unavailable("plan store", err)
	}
	if len(ids) == 0 {
		return nil, NewServiceError(CodeNotFound, fmt.Sprintf("no plan for cluster '%s'", cluster))
	}
	return ids, nil
}

// Delete forgets a cluster's plans. The next plan of that cluster starts
// without continuity.
func (s *PlanService) Delete(ctx context.Context, cluster string) error {
	if _, err := s.Get(ctx, cluster); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, cluster); err != nil {
		return unavailable("plan store", err)
	}
	s.metrics.Forget(cluster)

	if err := s.events.PlanDeleted(ctx, cluster); err != nil {
		logging.ErrorCtx(ctx, "Failed to publish plan event", "error", err, "cluster", cluster)
	}
	logging.InfoCtx(ctx, "Plan deleted", "cluster", cluster)
	return nil
}

// ValidateCluster parses a cluster's capacity declaration without planning
func (s *PlanService) ValidateCluster(c declaration.Cluster) (*models.CapacityValidationResponse, error) {
	if err := declaration.Validate(&c); err != nil {
		return nil, FromError(err)
	}
	req, err := c.Request()
	if err != nil {
		return nil, FromError(err)
	}
	if err := req.Validate(); err != nil {
		return nil, FromError(err)
	}

	return &models.CapacityValidationResponse{
		Cluster:   c.ID,
		Valid:     true,
		Nodes:     req.Capacity.Nodes.String(),
		Groups:    countString(req.Capacity.Groups),
		GroupSize: countString(req.Capacity.GroupSize),
		Grouped:   req.Capacity.IsGrouped(),
		Resources: req.Capacity.Resources,
	}, nil
}

func countString(c *capacity.Count) string {
	if c == nil {
		return ""
	}
	return c.String()
}

// Hosts returns the registered hosts
func (s *PlanService) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	if s.hosts == nil {
		return nil, NewServiceError(CodeUnavailable, "no inventory is configured")
	}
	records, err := s.hosts.Records(ctx)
	if err != nil {
		return nil, unavailable("inventory", err)
	}
	return records, nil
}

// SetRetired marks or unmarks a host for removal
func (s *PlanService) SetRetired(ctx context.Context, hostID string, retired bool) error {
	if s.hosts == nil {
		return NewServiceError(CodeUnavailable, "no inventory is configured")
	}

	var err error
	if retired {
		err = s.hosts.Retire(ctx, hostID)
	} else {
		err = s.hosts.Unretire(ctx, hostID)
	}
	if err != nil {
		return unavailable("inventory", err)
	}
	logging.InfoCtx(ctx, "Host retirement changed", "host_id", hostID, "retired", retired)
	return nil
}

// Ready reports whether the plan store answers
func (s *PlanService) Ready(ctx context.Context) error {
	_, err := s.store.History(ctx, "")
	return err
}
