// Package capacity turns a node/group/resource declaration into a
// validated CapacityRequest for the allocator.
package capacity

import (
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

// maxConsistencyNodes bounds the search for a node count that makes
// groups and group-size agree
const maxConsistencyNodes = 1000

// Declaration is the raw capacity declaration for a cluster.
// Counts are literals as accepted by ParseCount.
type Declaration struct {
	Count     string               `json:"count" yaml:"count"`
	Groups    string               `json:"groups,omitempty" yaml:"groups,omitempty"`
	GroupSize string               `json:"group_size,omitempty" yaml:"group_size,omitempty"`
	Resources models.ResourceRange `json:"resources" yaml:"resources"`
	Required  bool                 `json:"required,omitempty" yaml:"required,omitempty"`
	Exclusive bool                 `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Dedicated bool                 `json:"dedicated,omitempty" yaml:"dedicated,omitempty"`
}

// Request is a validated demand for one cluster
type Request struct {
	Nodes     Count                `json:"nodes"`
	Groups    *Count               `json:"groups,omitempty"`
	GroupSize *Count               `json:"group_size,omitempty"`
	Resources models.ResourceRange `json:"resources"`
	Required  bool                 `json:"required"`
	Exclusive bool                 `json:"exclusive"`
	Dedicated bool                 `json:"dedicated"`
}

// New parses and validates a declaration. A missing count means one node.
func New(d Declaration) (Request, error) {
	req := Request{
		Nodes:     Fixed(1),
		Resources: d.Resources,
		Required:  d.Required,
		Exclusive: d.Exclusive,
		Dedicated: d.Dedicated,
	}

	if d.Count != "" {
		nodes, err := ParseCount("count", d.Count)
		if err != nil {
			return Request{}, err
		}
		req.Nodes = nodes
	}
	if req.Nodes.Min < 1 {
		return Request{}, planerr.InvalidSpec("invalid count '%s': a cluster needs at least one node", d.Count)
	}

	if d.Groups != "" {
		groups, err := ParseCount("groups", d.Groups)
		if err != nil {
			return Request{}, err
		}
		if groups.Min < 1 {
			return Request{}, planerr.InvalidSpec("invalid groups '%s': at least one group is required", d.Groups)
		}
		req.Groups = &groups
	}
	if d.GroupSize != "" {
		size, err := ParseCount("group-size", d.GroupSize)
		if err != nil {
			return Request{}, err
		}
		if size.Max == 0 && size.Min == 0 {
			return Request{}, planerr.InvalidSpec("invalid group-size '%s': both bounds are open", d.GroupSize)
		}
		req.GroupSize = &size
	}

	if err := req.validateGroups(); err != nil {
		return Request{}, err
	}
	if err := d.Resources.Validate(); err != nil {
		return Request{}, planerr.InvalidSpec("invalid resources: %v", err)
	}
	return req, nil
}

func (r Request) validateGroups() error {
	if r.Groups != nil && r.Nodes.Max > 0 && r.Groups.Min > r.Nodes.Max {
		return planerr.InvalidSpec("group count exceeds node count: %s groups requested for %s nodes", r.Groups, r.Nodes).
			WithDetail("groups", r.Groups.String()).
			WithDetail("count", r.Nodes.String())
	}
	if r.GroupSize != nil && r.Nodes.Max > 0 && r.GroupSize.Min > r.Nodes.Max {
		return planerr.InvalidSpec("group-size %s is larger than the node count %s", r.GroupSize, r.Nodes)
	}
	if r.Groups == nil || r.GroupSize == nil {
		return nil
	}
	if !r.consistent() {
		return planerr.InvalidSpec("groups %s and group-size %s are incompatible with count %s",
			r.Groups, r.GroupSize, r.Nodes).
			WithDetail("groups", r.Groups.String()).
			WithDetail("group_size", r.GroupSize.String()).
			WithDetail("count", r.Nodes.String())
	}
	return nil
}

// consistent reports whether some node count in range splits into an allowed
// number of equally sized groups of an allowed size
func (r Request) consistent() bool {
	hi := r.Nodes.Max
	if hi == 0 || hi > maxConsistencyNodes {
		hi = maxConsistencyNodes
	}
	for n := r.Nodes.Min; n <= hi; n++ {
		for g := r.Groups.Min; g <= n; g++ {
			if r.Groups.Max > 0 && g > r.Groups.Max {
				break
			}
			if n%g == 0 && r.GroupSize.Contains(n/g) {
				return true
			}
		}
	}
	return false
}

// IsGrouped reports whether the request asks for more than one group
func (r Request) IsGrouped() bool {
	if r.Groups != nil {
		return r.Groups.Max == 0 || r.Groups.Max > 1
	}
	return r.GroupSize != nil
}

// GroupCount returns the number of groups to use for n allocated nodes.
// An explicit group count wins; the largest allowed count that keeps group
// sizes in bounds is chosen from a range. With only a group size, the
// smallest number of groups that respects the maximum size is used.
func (r Request) GroupCount(n int) int {
	if r.Groups != nil {
		if !r.Groups.IsRange() {
			return r.Groups.Min
		}
		hi := r.Groups.Max
		if hi == 0 || hi > n {
			hi = n
		}
		for g := hi; g >= r.Groups.Min && g >= 1; g-- {
			if r.GroupSize == nil || r.sizesFit(n, g) {
				return g
			}
		}
		return r.Groups.Min
	}
	if r.GroupSize != nil && r.GroupSize.Max > 0 && n > 0 {
		return (n + r.GroupSize.Max - 1) / r.GroupSize.Max
	}
	return 1
}

func (r Request) sizesFit(n, g int) bool {
	smallest := n / g
	largest := (n + g - 1) / g
	return smallest >= r.GroupSize.Min && (r.GroupSize.Max == 0 || largest <= r.GroupSize.Max)
}

// TargetNodes returns how many nodes to allocate given the number of
// active nodes the cluster had in the previous plan (0 if none)
func (r Request) TargetNodes(previous int) int {
	if previous > 0 {
		return r.Nodes.Clamp(previous)
	}
	return r.Nodes.Min
}
