package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/clusterplan/internal/models"
)

const deployment = `
clusters:
  - id: config
    type: container
    quorum: true
    nodes:
      count: 3
`

const hosts = `
- id: node-1
  resources: {vcpu: 4, memory_gb: 16, disk_gb: 100}
- id: node-2
  resources: {vcpu: 4, memory_gb: 16, disk_gb: 100}
- id: node-3
  resources: {vcpu: 4, memory_gb: 16, disk_gb: 100}
- id: node-4
  resources: {vcpu: 8, memory_gb: 32, disk_gb: 100}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	deploymentPath := writeFile(t, dir, "deployment.yaml", deployment)
	hostsPath := writeFile(t, dir, "hosts.yaml", hosts)
	state := filepath.Join(dir, "state")

	args := []string{"-deployment", deploymentPath, "-hosts", hostsPath, "-state", state, "-commit"}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out))

	var first models.PlanRunResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &first))
	require.Len(t, first.Plans, 1)
	assert.True(t, first.Committed)
	assert.Equal(t, 3, first.Plans[0].Allocated)
	_, bigHost := models.ByHost(first.Plans[0].Members)["node-4"]
	assert.False(t, bigHost, "smaller hosts are preferred")

	// second run reads the committed plan and keeps the ensemble stable
	out.Reset()
	require.NoError(t, run(context.Background(), args, &out))
	var second models.PlanRunResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &second))
	assert.Equal(t, first.Plans[0].PlanID, second.Plans[0].PlanID)
	assert.Empty(t, second.Plans[0].Quorum.Joining())
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, run(ctx, nil, &out))
	assert.Error(t, run(ctx, []string{"-deployment", filepath.Join(dir, "missing.yaml")}, &out))

	deploymentPath := writeFile(t, dir, "deployment.yaml", deployment)
	err := run(ctx, []string{"-deployment", deploymentPath, "-state", filepath.Join(dir, "state")}, &out)
	assert.ErrorContains(t, err, "no hosts")
}
