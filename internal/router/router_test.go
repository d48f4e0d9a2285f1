package router

import (
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/clusterplan/internal/allocation"
	"github.com/soltixdb/clusterplan/internal/config"
	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/metadata"
	"github.com/soltixdb/clusterplan/internal/metrics"
	"github.com/soltixdb/clusterplan/internal/services"
	"github.com/soltixdb/clusterplan/internal/topology"
)

var testAPIKey = strings.Repeat("k", 40)

func newTestApp(t *testing.T, authEnabled bool) *fiber.App {
	t.Helper()

	kv, err := metadata.NewPebbleManager(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	logger := logging.NewNop()
	m := metrics.New()
	planner := topology.New(topology.Options{Defaults: allocation.DefaultPlatform()})
	svc := services.NewPlanService(logger, planner, metadata.NewPlanStore(kv, false), nil, nil, m)

	cfg := config.Config{
		Auth:    config.AuthConfig{Enabled: authEnabled, APIKeys: []string{testAPIKey}},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	return New(logger, svc, m, cfg, "test")
}

func TestRouter_HealthWithoutAuth(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouter_V1RequiresKey(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/plans", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/v1/plans", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouter_Preview(t *testing.T) {
	app := newTestApp(t, false)

	body := `{"clusters":[{"id":"config","type":"container","quorum":true,"nodes":{"count":1}}],
"hosts":[{"id":"node-a","resources":{"vcpu":2,"memory_gb":8,"disk_gb":50}}]}`
	req := httptest.NewRequest("POST", "/v1/plans/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	app := newTestApp(t, false)

	// one request so the http collectors have a sample
	_, err := app.Test(httptest.NewRequest("GET", "/v1/plans", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "clusterplan_http_requests_total")
}

func TestRouter_NotFound(t *testing.T) {
	app := newTestApp(t, false)

	resp, err := app.Test(httptest.NewRequest("GET", "/v2/anything", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
