// Package redundancy computes the effective redundancy of a content cluster
// from the operator's desired values and the groups actually allocated.
package redundancy

import (
	"fmt"
	"strings"

	"github.com/soltixdb/clusterplan/internal/grouping"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

// Desired is what the operator asked for. All copy counts are per group;
// zero means unset.
type Desired struct {
	Redundancy    int `json:"redundancy,omitempty" yaml:"redundancy,omitempty"`
	ReplyAfter    int `json:"reply_after,omitempty" yaml:"reply_after,omitempty"`
	ReadyCopies   int `json:"ready_copies,omitempty" yaml:"ready_copies,omitempty"`
	MinRedundancy int `json:"min_redundancy,omitempty" yaml:"min_redundancy,omitempty"` // total across groups
}

// Input is the desired redundancy plus the cluster shape it applies to
type Input struct {
	Desired
	Groups  []models.Group // nil when flat
	Members int            // active members, used when flat
}

// Resolve clamps the desired redundancy to what the groups can hold.
// No group is ever asked to hold more copies than it has members.
func Resolve(in Input) (*models.Redundancy, error) {
	if in.Redundancy < 0 || in.ReplyAfter < 0 || in.ReadyCopies < 0 || in.MinRedundancy < 0 {
		return nil, planerr.InvalidSpec("redundancy values must not be negative")
	}

	g, perGroup := 1, in.Members
	if len(in.Groups) > 0 {
		g, perGroup = len(in.Groups), grouping.SmallestSize(in.Groups)
	}
	if perGroup == 0 {
		return nil, planerr.InvalidSpec("cannot place any copies: %d groups with no nodes in at least one of them", g).
			WithDetail("groups", g)
	}

	desired := in.Redundancy
	if desired == 0 {
		desired = 1
		if in.MinRedundancy > 0 {
			desired = ceilDiv(in.MinRedundancy, g)
		}
	}
	if in.ReplyAfter > desired {
		return nil, planerr.InvalidSpec("reply-after %d is greater than redundancy %d", in.ReplyAfter, desired).
			WithDetail("reply_after", in.ReplyAfter).
			WithDetail("redundancy", desired)
	}

	finalPG := min(desired, perGroup)

	// The floor wins over a lower operator value, up to the smallest group
	belowMin := false
	if in.MinRedundancy > 0 {
		finalPG = max(finalPG, min(ceilDiv(in.MinRedundancy, g), perGroup))
		belowMin = finalPG*g < in.MinRedundancy
	}

	initialDesired := in.ReplyAfter
	if initialDesired == 0 {
		initialDesired = finalPG
	}
	initialPG := min(initialDesired, finalPG)

	readyDesired := in.ReadyCopies
	if readyDesired == 0 {
		readyDesired = defaultReadyCopies(g, finalPG)
	}
	readyPG := min(readyDesired, finalPG)

	r := &models.Redundancy{
		Initial:             initialPG * g,
		Final:               finalPG * g,
		ReadyCopies:         readyPG * g,
		InitialPerGroup:     initialPG,
		FinalPerGroup:       finalPG,
		ReadyCopiesPerGroup: readyPG,
		Groups:              g,
		BelowMinRedundancy:  belowMin,
	}
	if len(in.Groups) > 0 {
		r.Partitions = Partitions(finalPG, g)
	}
	return r, nil
}

// Partitions returns the group distribution string: perGroup copies in each
// of the first g-1 groups, and a wildcard group taking the rest
func Partitions(perGroup, g int) string {
	if g <= 1 {
		return ""
	}
	return strings.Repeat(fmt.Sprintf("%d|", perGroup), g-1) + "*"
}

// defaultReadyCopies is one per group when grouped, and two for a flat
// cluster holding more than one copy.
func defaultReadyCopies(groups, finalPerGroup int) int {
	if groups == 1 && finalPerGroup > 1 {
		return 2
	}
	return 1
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
