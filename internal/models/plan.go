package models

// Group is a partition of a content cluster's nodes
type Group struct {
	Index   string `json:"index"`
	Members []int  `json:"members"`           // distribution keys of active members, ascending
	Retired []int  `json:"retired,omitempty"` // retired members still serving from this group
}

// Size returns the number of active members
func (g Group) Size() int {
	return len(g.Members)
}

// Redundancy is the effective redundancy of a content cluster.
// Totals count copies across all groups.
type Redundancy struct {
	Initial             int    `json:"initial"`
	Final               int    `json:"final"`
	ReadyCopies         int    `json:"ready_copies"`
	InitialPerGroup     int    `json:"initial_per_group"`
	FinalPerGroup       int    `json:"final_per_group"`
	ReadyCopiesPerGroup int    `json:"ready_copies_per_group"`
	Groups              int    `json:"groups"`
	Partitions          string `json:"partitions,omitempty"` // only set when grouped
	BelowMinRedundancy  bool   `json:"below_min_redundancy,omitempty"`
}

// QuorumMember is one member of a consensus ensemble
type QuorumMember struct {
	HostID   string `json:"host_id"`
	Index    int    `json:"index"`
	Joining  bool   `json:"joining"`
	Retiring bool   `json:"retiring"`
}

// QuorumPlan annotates ensemble membership changes between two plans
type QuorumPlan struct {
	Size    int            `json:"size"` // active members
	Members []QuorumMember `json:"members"`
}

// Joining returns the ids of members joining the ensemble
func (q *QuorumPlan) Joining() []string {
	var ids []string
	for _, m := range q.Members {
		if m.Joining {
			ids = append(ids, m.HostID)
		}
	}
	return ids
}

// Retiring returns the ids of members leaving the ensemble
func (q *QuorumPlan) Retiring() []string {
	var ids []string
	for _, m := range q.Members {
		if m.Retiring {
			ids = append(ids, m.HostID)
		}
	}
	return ids
}

// ClusterPlan is the complete topology computed for one cluster
type ClusterPlan struct {
	PlanID     string           `json:"plan_id"`
	Cluster    ClusterSpec      `json:"cluster"`
	Members    []NodeAssignment `json:"members"`
	Groups     []Group          `json:"groups,omitempty"`
	Redundancy *Redundancy      `json:"redundancy,omitempty"`
	Quorum     *QuorumPlan      `json:"quorum,omitempty"`
	Requested  int              `json:"requested"`
	Allocated  int              `json:"allocated"`
	Downscaled bool             `json:"downscaled,omitempty"`
}

// GroupOf returns the group a host belonged to in this plan, or "" if none
func (p *ClusterPlan) GroupOf(hostID string) string {
	if p == nil {
		return ""
	}
	for _, n := range p.Members {
		if n.Host.ID == hostID {
			return n.Membership.Group
		}
	}
	return ""
}
