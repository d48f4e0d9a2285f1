// Package topology runs the full planning pipeline for a cluster:
// allocation, grouping, redundancy and the quorum check.
package topology

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/soltixdb/clusterplan/internal/allocation"
	"github.com/soltixdb/clusterplan/internal/capacity"
	"github.com/soltixdb/clusterplan/internal/config"
	"github.com/soltixdb/clusterplan/internal/grouping"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
	"github.com/soltixdb/clusterplan/internal/quorum"
	"github.com/soltixdb/clusterplan/internal/redundancy"
)

// planNamespace seeds the name-based plan ids
var planNamespace = uuid.MustParse("6f1c3a52-9d0e-4b7a-8e21-3c5d7f9a0b14")

// ClusterRequest is everything needed to plan one cluster
type ClusterRequest struct {
	Cluster    models.ClusterSpec
	Capacity   capacity.Request
	Redundancy *redundancy.Desired // content and combined clusters only
	Quorum     bool                // host a consensus ensemble, container clusters only
}

// Validate checks that the request's parts fit the cluster type
func (r ClusterRequest) Validate() error {
	if err := r.Cluster.Validate(); err != nil {
		return err
	}
	if r.Capacity.IsGrouped() && !r.Cluster.Type.HasContent() {
		return planerr.InvalidSpec("cluster '%s' of type %s cannot be grouped", r.Cluster.ID, r.Cluster.Type)
	}
	if r.Redundancy != nil && !r.Cluster.Type.HasContent() {
		return planerr.InvalidSpec("cluster '%s' of type %s stores no documents and cannot declare redundancy",
			r.Cluster.ID, r.Cluster.Type)
	}
	return nil
}

// Options configures a Planner
type Options struct {
	Defaults    allocation.Defaults
	QuorumMin   int
	QuorumMax   int
	MaxParallel int // clusters resolved at once by ResolveAll, 0 for no limit
}

// OptionsFromConfig builds planner options from configuration. Empty
// platform defaults keep the built-in ones.
func OptionsFromConfig(cfg config.PlannerConfig) Options {
	defaults := allocation.DefaultPlatform()
	if cfg.DefaultArchitecture != "" {
		defaults.Architecture = models.Architecture(cfg.DefaultArchitecture)
	}
	if cfg.DefaultDiskSpeed != "" {
		defaults.DiskSpeed = models.DiskSpeed(cfg.DefaultDiskSpeed)
	}
	if cfg.DefaultStorageType != "" {
		defaults.StorageType = models.StorageType(cfg.DefaultStorageType)
	}
	return Options{
		Defaults:    defaults,
		QuorumMin:   cfg.QuorumMinSize,
		QuorumMax:   cfg.QuorumMaxSize,
		MaxParallel: cfg.MaxParallel,
	}
}

// Planner computes cluster plans. It holds no mutable state and is safe
// for concurrent use as long as callers do not share host pools.
type Planner struct {
	allocator   *allocation.Allocator
	quorum      *quorum.Checker
	maxParallel int
}

// New creates a Planner
func New(opts Options) *Planner {
	return &Planner{
		allocator:   allocation.New(opts.Defaults),
		quorum:      quorum.NewChecker(opts.QuorumMin, opts.QuorumMax),
		maxParallel: opts.MaxParallel,
	}
}

// Allocator returns the allocator used by the planner
func (p *Planner) Allocator() *allocation.Allocator {
	return p.allocator
}

// Resolve computes the plan for one cluster from pool, keeping continuity
// with previous when given. The result is a pure function of its inputs.
func (p *Planner) Resolve(req ClusterRequest, pool []models.Host, previous *models.ClusterPlan) (*models.ClusterPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	alloc, err := p.allocator.Allocate(req.Cluster, req.Capacity, pool, previous)
	if err != nil {
		return nil, err
	}

	plan := &models.ClusterPlan{
		Cluster:    req.Cluster,
		Members:    alloc.Members,
		Requested:  alloc.Requested,
		Allocated:  alloc.ActiveCount(),
		Downscaled: alloc.Downscaled,
	}

	if req.Cluster.Type.HasContent() {
		groupCount := 1
		if req.Capacity.IsGrouped() {
			groupCount = req.Capacity.GroupCount(plan.Allocated)
		}
		groups, err := grouping.Partition(plan.Members, groupCount, previous)
		if err != nil {
			return nil, fmt.Errorf("cluster '%s': %w", req.Cluster.ID, err)
		}
		plan.Groups = groups
		plan.Members = grouping.Apply(plan.Members, groups)

		var desired redundancy.Desired
		if req.Redundancy != nil {
			desired = *req.Redundancy
		}
		plan.Redundancy, err = redundancy.Resolve(redundancy.Input{
			Desired: desired,
			Groups:  groups,
			Members: plan.Allocated,
		})
		if err != nil {
			return nil, fmt.Errorf("cluster '%s': %w", req.Cluster.ID, err)
		}
	}

	if req.Quorum {
		plan.Quorum, err = p.quorum.Check(req.Cluster, plan.Members, previous)
		if err != nil {
			return nil, err
		}
	}

	plan.PlanID, err = PlanID(plan)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// PlanID derives a stable id from the plan's content, ignoring any id it
// already carries. Equal plans get equal ids.
func PlanID(plan *models.ClusterPlan) (string, error) {
	clone := *plan
	clone.PlanID = ""
	data, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}
	return uuid.NewSHA1(planNamespace, data).String(), nil
}
