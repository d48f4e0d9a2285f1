// Package quorum validates clusters that host an embedded consensus ensemble
// and reports which members join or leave it.
package quorum

import (
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

const (
	DefaultMinSize = 1
	DefaultMaxSize = 7
)

// Checker validates ensemble sizes against closed bounds
type Checker struct {
	minSize int
	maxSize int
}

// NewChecker creates a Checker. Non-positive bounds fall back to the defaults.
func NewChecker(minSize, maxSize int) *Checker {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Checker{minSize: minSize, maxSize: maxSize}
}

// Bounds returns the allowed ensemble size range
func (c *Checker) Bounds() (int, int) {
	return c.minSize, c.maxSize
}

// Check validates that cluster can host an ensemble of its active members
// and diffs membership against previous.
//
// An active member that was not active in previous is joining. A retired
// member that was in previous is retiring. Active members of previous that
// are gone from members entirely are reported as retiring at their old
// index. With no previous plan nothing is joining or retiring.
func (c *Checker) Check(cluster models.ClusterSpec, members []models.NodeAssignment, previous *models.ClusterPlan) (*models.QuorumPlan, error) {
	switch cluster.Type {
	case models.ClusterTypeContainer:
	case models.ClusterTypeCombined:
		return nil, planerr.UnsupportedTopology("cluster '%s' is combined with content cluster '%s': a consensus ensemble cannot share nodes with a content cluster",
			cluster.ID, cluster.CombinedWith).
			WithDetail("cluster", cluster.ID)
	default:
		return nil, planerr.UnsupportedTopology("cluster '%s' of type %s cannot host a consensus ensemble", cluster.ID, cluster.Type).
			WithDetail("cluster", cluster.ID)
	}

	size := len(models.Active(members))
	if size%2 == 0 || size < c.minSize || size > c.maxSize {
		return nil, planerr.InvalidEnsembleSize(cluster.ID, c.minSize, c.maxSize, size)
	}

	plan := &models.QuorumPlan{Size: size, Members: make([]models.QuorumMember, 0, len(members))}
	var prev map[string]models.NodeAssignment
	if previous != nil {
		prev = models.ByHost(previous.Members)
	}

	current := make(map[string]bool, len(members))
	for _, m := range members {
		current[m.Host.ID] = true
		qm := models.QuorumMember{HostID: m.Host.ID, Index: m.Membership.Index}
		if previous != nil {
			p, known := prev[m.Host.ID]
			if m.Membership.Retired {
				qm.Retiring = known && !p.Membership.Retired
			} else {
				qm.Joining = !known || p.Membership.Retired
			}
		}
		plan.Members = append(plan.Members, qm)
	}

	if previous != nil {
		for _, p := range models.Active(previous.Members) {
			if current[p.Host.ID] {
				continue
			}
			plan.Members = append(plan.Members, models.QuorumMember{
				HostID:   p.Host.ID,
				Index:    p.Membership.Index,
				Retiring: true,
			})
		}
	}
	return plan, nil
}
