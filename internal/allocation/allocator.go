// Package allocation matches a capacity request against a host pool and
// assigns stable cluster indices to the chosen hosts.
package allocation

import (
	"sort"

	"github.com/soltixdb/clusterplan/internal/capacity"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

// Defaults are the platform values used when a request leaves a
// categorical resource unspecified
type Defaults struct {
	Architecture models.Architecture
	DiskSpeed    models.DiskSpeed
	StorageType  models.StorageType
}

// DefaultPlatform returns the defaults used when nothing is configured
func DefaultPlatform() Defaults {
	return Defaults{
		Architecture: models.ArchitectureX86,
		DiskSpeed:    models.DiskSpeedAny,
		StorageType:  models.StorageTypeAny,
	}
}

// Allocation is the result of allocating one cluster
type Allocation struct {
	Cluster    models.ClusterSpec
	Members    []models.NodeAssignment // active by index, then retired by index
	Requested  int                     // nodes the allocator aimed for
	Available  int                     // qualifying hosts in the pool
	Downscaled bool
}

// ActiveCount returns the number of non-retired members
func (a *Allocation) ActiveCount() int {
	return len(models.Active(a.Members))
}

// Allocator assigns hosts to clusters. It holds no state besides its
// defaults and is safe for concurrent use.
type Allocator struct {
	defaults Defaults
}

// New creates an Allocator
func New(defaults Defaults) *Allocator {
	return &Allocator{defaults: defaults}
}

// Allocate selects hosts for cluster from pool.
//
// Members of previous keep their index when they are selected again. Members
// of previous that are not selected but are still in the pool are kept as
// retired at their old index. New hosts take the lowest free indices.
func (a *Allocator) Allocate(cluster models.ClusterSpec, req capacity.Request, pool []models.Host, previous *models.ClusterPlan) (*Allocation, error) {
	if err := cluster.Validate(); err != nil {
		return nil, err
	}
	if previous != nil && previous.Cluster.ID != cluster.ID {
		return nil, planerr.InvalidSpec("previous plan belongs to cluster '%s', not '%s'", previous.Cluster.ID, cluster.ID)
	}

	inPool := make(map[string]models.Host, len(pool))
	for _, h := range pool {
		if _, dup := inPool[h.ID]; dup {
			return nil, planerr.InvalidSpec("host '%s' appears more than once in the pool", h.ID)
		}
		inPool[h.ID] = h
	}

	var prevMembers []models.NodeAssignment
	if previous != nil {
		prevMembers = previous.Members
	}
	prevByHost := models.ByHost(prevMembers)

	candidates := a.candidates(req, pool, prevByHost)
	target := req.TargetNodes(len(models.Active(prevMembers)))

	if len(candidates) < req.Nodes.Min && req.Required {
		return nil, planerr.InsufficientCapacity(cluster.ID, req.Nodes.Min, len(candidates))
	}
	if len(candidates) == 0 {
		return nil, planerr.InsufficientCapacity(cluster.ID, target, 0)
	}

	selected := candidates
	if len(selected) > target {
		selected = selected[:target]
	}

	members := make([]models.NodeAssignment, 0, len(selected)+len(prevMembers))
	used := make(map[int]bool)
	chosen := make(map[string]bool, len(selected))
	for _, h := range selected {
		chosen[h.ID] = true
	}

	// Previous members keep their index, retained or retired
	for _, p := range prevMembers {
		h, present := inPool[p.Host.ID]
		if !present {
			continue
		}
		used[p.Membership.Index] = true
		members = append(members, models.NodeAssignment{
			Host:       h,
			Membership: a.membership(cluster, req, p.Membership.Index, !chosen[h.ID]),
		})
	}

	next := 0
	for _, h := range selected {
		if _, known := prevByHost[h.ID]; known {
			continue
		}
		for used[next] {
			next++
		}
		used[next] = true
		members = append(members, models.NodeAssignment{
			Host:       h,
			Membership: a.membership(cluster, req, next, false),
		})
	}

	models.SortAssignments(members)
	return &Allocation{
		Cluster:    cluster,
		Members:    members,
		Requested:  target,
		Available:  len(candidates),
		Downscaled: len(selected) < target,
	}, nil
}

func (a *Allocator) membership(cluster models.ClusterSpec, req capacity.Request, index int, retired bool) models.ClusterMembership {
	return models.ClusterMembership{
		Cluster:   cluster,
		Index:     index,
		Retired:   retired,
		Exclusive: req.Exclusive,
		Dedicated: req.Dedicated,
	}
}

// candidates returns the qualifying hosts in preference order: previous
// active members by index, previous retired members by index, then new
// hosts smallest flavor first
func (a *Allocator) candidates(req capacity.Request, pool []models.Host, prev map[string]models.NodeAssignment) []models.Host {
	var retained, returning, fresh []models.Host
	for _, h := range pool {
		if !a.Qualifies(req, h) {
			continue
		}
		p, known := prev[h.ID]
		switch {
		case known && !p.Membership.Retired:
			retained = append(retained, h)
		case known:
			returning = append(returning, h)
		default:
			fresh = append(fresh, h)
		}
	}

	byIndex := func(hosts []models.Host) {
		sort.Slice(hosts, func(i, j int) bool {
			return prev[hosts[i].ID].Membership.Index < prev[hosts[j].ID].Membership.Index
		})
	}
	byIndex(retained)
	byIndex(returning)
	SortByFlavor(fresh)

	out := make([]models.Host, 0, len(retained)+len(returning)+len(fresh))
	out = append(out, retained...)
	out = append(out, returning...)
	return append(out, fresh...)
}

// SortByFlavor orders hosts smallest flavor first, ties broken by id
func SortByFlavor(hosts []models.Host) {
	sort.Slice(hosts, func(i, j int) bool {
		ri, rj := hosts[i].Resources, hosts[j].Resources
		if ri.Less(rj) {
			return true
		}
		if rj.Less(ri) {
			return false
		}
		return hosts[i].ID < hosts[j].ID
	})
}

// Qualifies reports whether h can serve req. Retired hosts never qualify.
func (a *Allocator) Qualifies(req capacity.Request, h models.Host) bool {
	if h.Retired {
		return false
	}
	if req.Exclusive && !h.ExclusiveEligible {
		return false
	}

	want, have := req.Resources.Min, h.Resources
	if !matches(string(want.Architecture), string(have.Architecture), string(a.defaults.Architecture)) ||
		!matches(string(want.DiskSpeed), string(have.DiskSpeed), string(a.defaults.DiskSpeed)) ||
		!matches(string(want.StorageType), string(have.StorageType), string(a.defaults.StorageType)) {
		return false
	}

	// GPU hosts are reserved for requests that ask for GPUs
	if (want.GPU.Count > 0) != (have.GPU.Count > 0) {
		return false
	}

	return have.Satisfies(want) && have.Within(req.Resources.Max)
}

// matches compares a categorical resource value. An unspecified request
// value falls back to the platform default; "any" on either side matches.
func matches(want, have, platformDefault string) bool {
	if want == "" || want == "any" {
		want = platformDefault
	}
	if want == "" || want == "any" || have == "" || have == "any" {
		return true
	}
	return want == have
}
