package models

import (
	"sort"

	"github.com/soltixdb/clusterplan/internal/planerr"
)

// ClusterType is the role a cluster plays
type ClusterType string

const (
	ClusterTypeContainer ClusterType = "container"
	ClusterTypeContent   ClusterType = "content"
	ClusterTypeCombined  ClusterType = "combined"
	ClusterTypeAdmin     ClusterType = "admin"
)

// IsValid reports whether t is a known cluster type
func (t ClusterType) IsValid() bool {
	switch t {
	case ClusterTypeContainer, ClusterTypeContent, ClusterTypeCombined, ClusterTypeAdmin:
		return true
	}
	return false
}

// HasContent reports whether clusters of this type store documents
func (t ClusterType) HasContent() bool {
	return t == ClusterTypeContent || t == ClusterTypeCombined
}

// ClusterSpec identifies a logical cluster
type ClusterSpec struct {
	ID           string      `json:"id" yaml:"id"`
	Type         ClusterType `json:"type" yaml:"type"`
	CombinedWith string      `json:"combined_with,omitempty" yaml:"combined_with,omitempty"` // content cluster id, combined type only
}

// Validate checks the cluster identity
func (c ClusterSpec) Validate() error {
	if c.ID == "" {
		return planerr.InvalidSpec("cluster id is required")
	}
	if !c.Type.IsValid() {
		return planerr.InvalidSpec("cluster '%s' has unknown type '%s'", c.ID, c.Type)
	}
	if c.Type == ClusterTypeCombined && c.CombinedWith == "" {
		return planerr.InvalidSpec("combined cluster '%s' must reference a content cluster", c.ID)
	}
	if c.Type != ClusterTypeCombined && c.CombinedWith != "" {
		return planerr.InvalidSpec("cluster '%s' of type %s cannot be combined with '%s'", c.ID, c.Type, c.CombinedWith)
	}
	return nil
}

// ClusterMembership is the role one host has in a cluster
type ClusterMembership struct {
	Cluster   ClusterSpec `json:"cluster"`
	Index     int         `json:"index"`
	Retired   bool        `json:"retired"`
	Group     string      `json:"group,omitempty"` // empty when the cluster is flat
	Exclusive bool        `json:"exclusive,omitempty"`
	Dedicated bool        `json:"dedicated,omitempty"`
}

// NodeAssignment binds a host to its membership
type NodeAssignment struct {
	Host       Host              `json:"host"`
	Membership ClusterMembership `json:"membership"`
}

// SortAssignments orders active members by index, followed by retired members by index
func SortAssignments(nodes []NodeAssignment) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Membership, nodes[j].Membership
		if a.Retired != b.Retired {
			return !a.Retired
		}
		return a.Index < b.Index
	})
}

// Active returns the members that are not retired
func Active(nodes []NodeAssignment) []NodeAssignment {
	out := make([]NodeAssignment, 0, len(nodes))
	for _, n := range nodes {
		if !n.Membership.Retired {
			out = append(out, n)
		}
	}
	return out
}

// ByHost indexes assignments by host id
func ByHost(nodes []NodeAssignment) map[string]NodeAssignment {
	m := make(map[string]NodeAssignment, len(nodes))
	for _, n := range nodes {
		m[n.Host.ID] = n
	}
	return m
}
