// Package grouping splits the members of a content cluster into groups.
package grouping

import (
	"sort"
	"strconv"

	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

// Partition splits the active members into groupCount groups of near equal
// size. The first N mod G groups get one extra member, and members are
// assigned in index order, so the result depends only on the sorted index
// list and groupCount.
//
// Retired members are put back into the group they had in previous if that
// group still exists, otherwise into the last group.
//
// A groupCount of 0 or 1 means the cluster is flat and nil is returned.
func Partition(members []models.NodeAssignment, groupCount int, previous *models.ClusterPlan) ([]models.Group, error) {
	if groupCount <= 1 {
		return nil, nil
	}

	var active, retired []models.NodeAssignment
	for _, m := range members {
		if m.Membership.Retired {
			retired = append(retired, m)
		} else {
			active = append(active, m)
		}
	}
	if groupCount > len(active) {
		return nil, planerr.InvalidSpec("group count exceeds node count: %d groups requested for %d nodes",
			groupCount, len(active)).
			WithDetail("groups", groupCount).
			WithDetail("nodes", len(active))
	}

	byIndex := func(nodes []models.NodeAssignment) {
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].Membership.Index < nodes[j].Membership.Index
		})
	}
	byIndex(active)
	byIndex(retired)

	groups := make([]models.Group, groupCount)
	base, extra := len(active)/groupCount, len(active)%groupCount
	next := 0
	for g := range groups {
		size := base
		if g < extra {
			size++
		}
		groups[g].Index = strconv.Itoa(g)
		groups[g].Members = make([]int, 0, size)
		for _, m := range active[next : next+size] {
			groups[g].Members = append(groups[g].Members, m.Membership.Index)
		}
		next += size
	}

	for _, m := range retired {
		g := groupCount - 1
		if prev, err := strconv.Atoi(previous.GroupOf(m.Host.ID)); err == nil && prev >= 0 && prev < groupCount {
			g = prev
		}
		groups[g].Retired = append(groups[g].Retired, m.Membership.Index)
	}
	return groups, nil
}

// Apply returns a copy of members with each membership's group set from
// groups. Members not found in any group, and all members when groups is
// empty, get an empty group.
func Apply(members []models.NodeAssignment, groups []models.Group) []models.NodeAssignment {
	groupOf := make(map[int]string)
	for _, g := range groups {
		for _, idx := range g.Members {
			groupOf[idx] = g.Index
		}
		for _, idx := range g.Retired {
			groupOf[idx] = g.Index
		}
	}

	out := make([]models.NodeAssignment, len(members))
	for i, m := range members {
		m.Membership.Group = groupOf[m.Membership.Index]
		out[i] = m
	}
	return out
}

// SmallestSize returns the size of the smallest group, or 0 if there are none
func SmallestSize(groups []models.Group) int {
	if len(groups) == 0 {
		return 0
	}
	smallest := groups[0].Size()
	for _, g := range groups[1:] {
		if g.Size() < smallest {
			smallest = g.Size()
		}
	}
	return smallest
}
