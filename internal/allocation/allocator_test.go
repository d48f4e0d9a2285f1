package allocation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/clusterplan/internal/capacity"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

var content = models.ClusterSpec{ID: "music", Type: models.ClusterTypeContent}

func makeHost(id string, vcpu, mem, disk float64) models.Host {
	return models.Host{
		ID: id,
		Resources: models.ResourceSpec{
			VCPU:          vcpu,
			MemoryGB:      mem,
			DiskGB:        disk,
			BandwidthGbps: 1,
			DiskSpeed:     models.DiskSpeedFast,
			StorageType:   models.StorageTypeLocal,
			Architecture:  models.ArchitectureX86,
		},
	}
}

func makePool(n int) []models.Host {
	pool := make([]models.Host, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, makeHost(fmt.Sprintf("host-%03d", i), 4, 16, 100))
	}
	return pool
}

func request(t *testing.T, d capacity.Declaration) capacity.Request {
	t.Helper()
	req, err := capacity.New(d)
	require.NoError(t, err)
	return req
}

func hostIDs(nodes []models.NodeAssignment) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.Host.ID)
	}
	return ids
}

func indices(nodes []models.NodeAssignment) []int {
	out := make([]int, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Membership.Index)
	}
	return out
}

func TestAllocate_ContiguousIndices(t *testing.T) {
	a := New(DefaultPlatform())
	alloc, err := a.Allocate(content, request(t, capacity.Declaration{Count: "27", Groups: "9"}), makePool(67), nil)
	require.NoError(t, err)

	require.Len(t, alloc.Members, 27)
	for i, m := range alloc.Members {
		assert.Equal(t, i, m.Membership.Index)
		assert.False(t, m.Membership.Retired)
		assert.Equal(t, content, m.Membership.Cluster)
	}
	assert.Equal(t, 27, alloc.Requested)
	assert.Equal(t, 67, alloc.Available)
	assert.False(t, alloc.Downscaled)
}

func TestAllocate_Deterministic(t *testing.T) {
	a := New(DefaultPlatform())
	req := request(t, capacity.Declaration{Count: "5"})
	pool := makePool(12)

	first, err := a.Allocate(content, req, pool, nil)
	require.NoError(t, err)

	// Reverse the pool; output must not depend on input order
	reversed := make([]models.Host, len(pool))
	for i, h := range pool {
		reversed[len(pool)-1-i] = h
	}
	second, err := a.Allocate(content, req, reversed, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAllocate_PrefersSmallestFlavor(t *testing.T) {
	pool := []models.Host{
		makeHost("big-1", 16, 64, 500),
		makeHost("small-1", 2, 8, 50),
		makeHost("mid-1", 4, 16, 100),
		makeHost("tiny-1", 1, 2, 10),
		makeHost("small-2", 2, 8, 50),
	}
	req := request(t, capacity.Declaration{
		Count:     "3",
		Resources: models.ResourceRange{Min: models.ResourceSpec{VCPU: 2, MemoryGB: 8, DiskGB: 50}},
	})

	alloc, err := New(DefaultPlatform()).Allocate(content, req, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"small-1", "small-2", "mid-1"}, hostIDs(alloc.Members))
}

func TestAllocate_RespectsMaxResources(t *testing.T) {
	pool := []models.Host{
		makeHost("big-1", 16, 64, 500),
		makeHost("mid-1", 4, 16, 100),
	}
	req := request(t, capacity.Declaration{
		Count: "1",
		Resources: models.ResourceRange{
			Min: models.ResourceSpec{VCPU: 4},
			Max: models.ResourceSpec{VCPU: 8},
		},
	})

	alloc, err := New(DefaultPlatform()).Allocate(content, req, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid-1"}, hostIDs(alloc.Members))
}

func TestQualifies(t *testing.T) {
	a := New(DefaultPlatform())

	arm := makeHost("arm-1", 4, 16, 100)
	arm.Resources.Architecture = models.ArchitectureARM64

	slow := makeHost("slow-1", 4, 16, 100)
	slow.Resources.DiskSpeed = models.DiskSpeedSlow

	gpu := makeHost("gpu-1", 4, 16, 100)
	gpu.Resources.GPU = models.GPUSpec{Count: 1, MemoryGB: 16}

	exclusive := makeHost("excl-1", 4, 16, 100)
	exclusive.ExclusiveEligible = true

	retired := makeHost("ret-1", 4, 16, 100)
	retired.Retired = true

	tests := []struct {
		name     string
		req      capacity.Request
		host     models.Host
		expected bool
	}{
		{name: "default architecture rejects arm", req: capacity.Request{}, host: arm, expected: false},
		{
			name:     "explicit arm",
			req:      capacity.Request{Resources: models.ResourceRange{Min: models.ResourceSpec{Architecture: models.ArchitectureARM64}}},
			host:     arm,
			expected: true,
		},
		{name: "unspecified disk speed accepts slow", req: capacity.Request{}, host: slow, expected: true},
		{
			name:     "fast disk rejects slow",
			req:      capacity.Request{Resources: models.ResourceRange{Min: models.ResourceSpec{DiskSpeed: models.DiskSpeedFast}}},
			host:     slow,
			expected: false,
		},
		{name: "gpu host reserved", req: capacity.Request{}, host: gpu, expected: false},
		{
			name:     "gpu request",
			req:      capacity.Request{Resources: models.ResourceRange{Min: models.ResourceSpec{GPU: models.GPUSpec{Count: 1, MemoryGB: 8}}}},
			host:     gpu,
			expected: true,
		},
		{
			name:     "gpu request on plain host",
			req:      capacity.Request{Resources: models.ResourceRange{Min: models.ResourceSpec{GPU: models.GPUSpec{Count: 1}}}},
			host:     makeHost("plain", 4, 16, 100),
			expected: false,
		},
		{name: "exclusive needs eligible host", req: capacity.Request{Exclusive: true}, host: makeHost("plain", 4, 16, 100), expected: false},
		{name: "exclusive eligible host", req: capacity.Request{Exclusive: true}, host: exclusive, expected: true},
		{name: "retired host", req: capacity.Request{}, host: retired, expected: false},
		{
			name:     "too small",
			req:      capacity.Request{Resources: models.ResourceRange{Min: models.ResourceSpec{MemoryGB: 32}}},
			host:     makeHost("plain", 4, 16, 100),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, a.Qualifies(tt.req, tt.host))
		})
	}
}

func TestAllocate_InsufficientCapacityWhenRequired(t *testing.T) {
	req := request(t, capacity.Declaration{Count: "5", Required: true})

	_, err := New(DefaultPlatform()).Allocate(content, req, makePool(3), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, planerr.ErrInsufficientCapacity))

	var pe *planerr.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "music", pe.Details["cluster"])
	assert.Equal(t, 5, pe.Details["requested"])
	assert.Equal(t, 3, pe.Details["available"])
}

func TestAllocate_DownscalesWhenNotRequired(t *testing.T) {
	req := request(t, capacity.Declaration{Count: "9", Groups: "3"})

	alloc, err := New(DefaultPlatform()).Allocate(content, req, makePool(6), nil)
	require.NoError(t, err)
	assert.Len(t, alloc.Members, 6)
	assert.True(t, alloc.Downscaled)
	assert.Equal(t, 9, alloc.Requested)
	assert.Equal(t, 6, alloc.Available)
}

func TestAllocate_NoQualifyingHosts(t *testing.T) {
	req := request(t, capacity.Declaration{Count: "2"})

	_, err := New(DefaultPlatform()).Allocate(content, req, nil, nil)
	assert.True(t, errors.Is(err, planerr.ErrInsufficientCapacity))
}

func TestAllocate_RejectsDuplicateHosts(t *testing.T) {
	pool := append(makePool(2), makeHost("host-000", 4, 16, 100))
	_, err := New(DefaultPlatform()).Allocate(content, request(t, capacity.Declaration{Count: "2"}), pool, nil)
	assert.True(t, errors.Is(err, planerr.ErrInvalidSpec))
}

func TestAllocate_RejectsForeignPreviousPlan(t *testing.T) {
	prev := &models.ClusterPlan{Cluster: models.ClusterSpec{ID: "other", Type: models.ClusterTypeContent}}
	_, err := New(DefaultPlatform()).Allocate(content, request(t, capacity.Declaration{Count: "2"}), makePool(2), prev)
	assert.True(t, errors.Is(err, planerr.ErrInvalidSpec))
}

func TestAllocate_KeepsIndicesAcrossPlans(t *testing.T) {
	a := New(DefaultPlatform())
	req := request(t, capacity.Declaration{Count: "3"})
	pool := makePool(3)

	first, err := a.Allocate(content, req, pool, nil)
	require.NoError(t, err)
	prev := &models.ClusterPlan{Cluster: content, Members: first.Members}

	// host-001 is marked retired by the inventory; host-900 is new and larger
	pool[1].Retired = true
	pool = append(pool, makeHost("host-900", 8, 32, 200))

	second, err := a.Allocate(content, req, pool, prev)
	require.NoError(t, err)

	byHost := models.ByHost(second.Members)
	assert.Equal(t, 0, byHost["host-000"].Membership.Index)
	assert.Equal(t, 2, byHost["host-002"].Membership.Index)
	assert.Equal(t, 1, byHost["host-001"].Membership.Index)
	assert.True(t, byHost["host-001"].Membership.Retired)

	// The new host cannot reuse index 1 while the retired member still holds it
	assert.Equal(t, 3, byHost["host-900"].Membership.Index)
	assert.False(t, byHost["host-900"].Membership.Retired)

	// Retired members come after all active members
	assert.Equal(t, []string{"host-000", "host-002", "host-900", "host-001"}, hostIDs(second.Members))
}

func TestAllocate_DropsMembersGoneFromPool(t *testing.T) {
	a := New(DefaultPlatform())
	req := request(t, capacity.Declaration{Count: "3"})
	pool := makePool(3)

	first, err := a.Allocate(content, req, pool, nil)
	require.NoError(t, err)
	prev := &models.ClusterPlan{Cluster: content, Members: first.Members}

	// host-001 disappears entirely; its index is free again
	pool = []models.Host{pool[0], pool[2], makeHost("host-500", 4, 16, 100)}

	second, err := a.Allocate(content, req, pool, prev)
	require.NoError(t, err)
	assert.Equal(t, []string{"host-000", "host-500", "host-002"}, hostIDs(second.Members))
	assert.Equal(t, []int{0, 1, 2}, indices(second.Members))
}

func TestAllocate_ShrinkRetiresHighestIndices(t *testing.T) {
	a := New(DefaultPlatform())
	pool := makePool(5)

	first, err := a.Allocate(content, request(t, capacity.Declaration{Count: "5"}), pool, nil)
	require.NoError(t, err)
	prev := &models.ClusterPlan{Cluster: content, Members: first.Members}

	second, err := a.Allocate(content, request(t, capacity.Declaration{Count: "3"}), pool, prev)
	require.NoError(t, err)

	assert.Equal(t, 3, second.ActiveCount())
	for _, m := range second.Members {
		assert.Equal(t, m.Membership.Index >= 3, m.Membership.Retired, "host %s", m.Host.ID)
	}
}

func TestAllocate_RangeKeepsPreviousSize(t *testing.T) {
	a := New(DefaultPlatform())
	pool := makePool(10)

	first, err := a.Allocate(content, request(t, capacity.Declaration{Count: "4"}), pool, nil)
	require.NoError(t, err)
	prev := &models.ClusterPlan{Cluster: content, Members: first.Members}

	second, err := a.Allocate(content, request(t, capacity.Declaration{Count: "[2, 6]"}), pool, prev)
	require.NoError(t, err)
	assert.Equal(t, 4, second.ActiveCount())
	assert.Equal(t, hostIDs(first.Members), hostIDs(second.Members))
}

func TestAllocate_ReturningMemberKeepsIndex(t *testing.T) {
	a := New(DefaultPlatform())
	req := request(t, capacity.Declaration{Count: "2"})
	pool := makePool(2)

	first, err := a.Allocate(content, req, pool, nil)
	require.NoError(t, err)

	pool[1].Retired = true
	pool = append(pool, makeHost("host-100", 4, 16, 100))
	second, err := a.Allocate(content, req, pool, &models.ClusterPlan{Cluster: content, Members: first.Members})
	require.NoError(t, err)

	// host-001 comes back; host-100 is now the surplus member and retires
	pool[1].Retired = false
	third, err := a.Allocate(content, req, pool, &models.ClusterPlan{Cluster: content, Members: second.Members})
	require.NoError(t, err)

	byHost := models.ByHost(third.Members)
	assert.False(t, byHost["host-000"].Membership.Retired)
	assert.False(t, byHost["host-100"].Membership.Retired)
	assert.True(t, byHost["host-001"].Membership.Retired)
	assert.Equal(t, 1, byHost["host-001"].Membership.Index)
}

func TestAllocate_FlagsPassThrough(t *testing.T) {
	pool := makePool(2)
	for i := range pool {
		pool[i].ExclusiveEligible = true
	}
	req := request(t, capacity.Declaration{Count: "2", Exclusive: true, Dedicated: true})

	alloc, err := New(DefaultPlatform()).Allocate(content, req, pool, nil)
	require.NoError(t, err)
	for _, m := range alloc.Members {
		assert.True(t, m.Membership.Exclusive)
		assert.True(t, m.Membership.Dedicated)
	}
}
