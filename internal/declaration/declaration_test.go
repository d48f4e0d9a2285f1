package declaration

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/clusterplan/internal/capacity"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

const deploymentYAML = `
clusters:
  - id: music
    type: content
    nodes:
      count: 27
      groups: 9
      resources:
        min:
          vcpu: 4
          memory_gb: 16
          disk_gb: 100
          disk_speed: fast
    redundancy:
      redundancy: 3
      ready_copies: 1
  - id: default
    type: container
    quorum: true
    nodes:
      count: [3, 5]
      required: true
  - id: mixed
    type: combined
    combined_with: music
    nodes:
      count: [1, ~]
hosts:
  - id: host-001.example.com
    resources:
      vcpu: 8
      memory_gb: 32
      disk_gb: 200
  - id: host-002.example.com
    retired: true
    resources:
      vcpu: 8
`

func TestParseYAML(t *testing.T) {
	d, err := ParseYAML([]byte(deploymentYAML))
	require.NoError(t, err)
	require.Len(t, d.Clusters, 3)

	music := d.Clusters[0]
	assert.Equal(t, Literal("27"), music.Nodes.Count)
	assert.Equal(t, Literal("9"), music.Nodes.Groups)
	assert.Equal(t, models.DiskSpeedFast, music.Nodes.Resources.Min.DiskSpeed)
	require.NotNil(t, music.Redundancy)
	assert.Equal(t, 3, music.Redundancy.Redundancy)

	assert.Equal(t, Literal("[3, 5]"), d.Clusters[1].Nodes.Count)
	assert.Equal(t, Literal("[1, ]"), d.Clusters[2].Nodes.Count)

	pool := d.Pool()
	require.Len(t, pool, 2)
	assert.Equal(t, "host-001.example.com", pool[0].ID)
	assert.True(t, pool[1].Retired)
}

func TestDeployment_Requests(t *testing.T) {
	d, err := ParseYAML([]byte(deploymentYAML))
	require.NoError(t, err)

	reqs, err := d.Requests()
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	assert.Equal(t, models.ClusterTypeContent, reqs[0].Cluster.Type)
	assert.Equal(t, 9, reqs[0].Capacity.GroupCount(27))
	assert.Equal(t, capacity.Count{Min: 3, Max: 5}, reqs[1].Capacity.Nodes)
	assert.True(t, reqs[1].Capacity.Required)
	assert.True(t, reqs[1].Quorum)
	assert.Equal(t, "music", reqs[2].Cluster.CombinedWith)
	assert.Equal(t, capacity.Count{Min: 1}, reqs[2].Capacity.Nodes)
}

func TestParseJSON(t *testing.T) {
	body := `{
		"clusters": [
			{"id": "music", "type": "content", "nodes": {"count": "[2, 4]", "group_size": [2, null]}},
			{"id": "default", "type": "container", "nodes": {"count": 3}}
		]
	}`
	d, err := ParseJSON([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, Literal("[2, 4]"), d.Clusters[0].Nodes.Count)
	assert.Equal(t, Literal("[2, ]"), d.Clusters[0].Nodes.GroupSize)
	assert.Equal(t, Literal("3"), d.Clusters[1].Nodes.Count)
	assert.Nil(t, d.Pool())
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no clusters", body: `clusters: []`},
		{name: "missing id", body: "clusters:\n  - type: content\n"},
		{name: "bad id", body: "clusters:\n  - id: Music!\n    type: content\n"},
		{name: "unknown type", body: "clusters:\n  - id: music\n    type: search\n"},
		{name: "combined without target", body: "clusters:\n  - id: mixed\n    type: combined\n"},
		{name: "bad host name", body: "clusters:\n  - id: a\n    type: admin\nhosts:\n  - id: 'not a host'\n"},
		{name: "malformed yaml", body: "clusters: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, planerr.ErrInvalidSpec))
		})
	}
}

func TestValidate_ClusterIDTag(t *testing.T) {
	assert.NoError(t, Validate(&Cluster{ID: "music_2", Type: "content"}))

	err := Validate(&Cluster{ID: "Music!", Type: "content"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, planerr.ErrInvalidSpec))
	assert.Contains(t, err.Error(), "cluster_id")

	// Re-registering the tag on the shared validator succeeds
	assert.NoError(t, validate.RegisterValidation("cluster_id", func(fl validator.FieldLevel) bool {
		return clusterIDRegex.MatchString(fl.Field().String())
	}))
}

func TestDeployment_RequestsRejectsBadCapacity(t *testing.T) {
	body := `
clusters:
  - id: music
    type: content
    nodes:
      count: 4
      group_size: "[2, --]"
`
	d, err := ParseYAML([]byte(body))
	require.NoError(t, err)

	_, err = d.Requests()
	require.Error(t, err)
	assert.True(t, errors.Is(err, planerr.ErrInvalidSpec))
	assert.Contains(t, err.Error(), "'--' is not an integer")
	assert.Contains(t, err.Error(), "cluster 'music'")
}

func TestDeployment_RequestsRejectsDuplicates(t *testing.T) {
	d := &Deployment{Clusters: []Cluster{
		{ID: "a", Type: "admin"},
		{ID: "a", Type: "admin"},
	}}
	_, err := d.Requests()
	assert.True(t, errors.Is(err, planerr.ErrInvalidSpec))
}

func TestParseHostsYAML(t *testing.T) {
	hosts, err := ParseHostsYAML([]byte(`
- id: h1
  resources: {vcpu: 2, memory_gb: 8, architecture: arm64}
- id: h2
  exclusive_eligible: true
`))
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, models.ArchitectureARM64, hosts[0].Resources.Architecture)
	assert.True(t, hosts[1].ExclusiveEligible)

	_, err = ParseHostsYAML([]byte(`- id: ""`))
	assert.Error(t, err)
}
