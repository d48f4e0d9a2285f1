package metadata

import (
	"context"
	"os"
	"testing"
	"time"

	"go.etcd.io/etcd/client/pkg/v3/types"
	"go.etcd.io/etcd/server/v3/embed"

	"github.com/soltixdb/clusterplan/internal/config"
)

// setupTestEtcd creates an embedded etcd server for testing
func setupTestEtcd(t *testing.T) (*embed.Etcd, []string, func()) {
	tmpDir, err := os.MkdirTemp("", "etcd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	cfg := embed.NewConfig()
	cfg.Dir = tmpDir

	// Use random available ports
	cfg.ListenClientUrls, _ = types.NewURLs([]string{"http://127.0.0.1:0"})
	cfg.ListenPeerUrls, _ = types.NewURLs([]string{"http://127.0.0.1:0"})

	cfg.LogLevel = "error"
	cfg.Logger = "zap"

	e, err := embed.StartEtcd(cfg)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to start etcd: %v", err)
	}

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(5 * time.Second):
		e.Close()
		_ = os.RemoveAll(tmpDir)
		t.Fatal("Etcd server took too long to start")
	}

	endpoints := []string{e.Clients[0].Addr().String()}

	cleanup := func() {
		e.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return e, endpoints, cleanup
}

func newTestEtcdManager(t *testing.T) (*EtcdManager, func()) {
	_, endpoints, cleanup := setupTestEtcd(t)

	manager, err := NewEtcdManager(config.EtcdConfig{Endpoints: endpoints, DialTimeout: 5 * time.Second})
	if err != nil {
		cleanup()
		t.Fatalf("Failed to create EtcdManager: %v", err)
	}

	return manager, func() {
		_ = manager.Close()
		cleanup()
	}
}

func TestNewEtcdManager(t *testing.T) {
	manager, cleanup := newTestEtcdManager(t)
	defer cleanup()

	if manager.client == nil {
		t.Error("Expected client to be initialized")
	}
	if manager.cache == nil {
		t.Error("Expected cache to be initialized")
	}
	if manager.Client() != manager.client {
		t.Error("Client() should expose the underlying client")
	}
}

func TestEtcdManager_PutGetDelete(t *testing.T) {
	manager, cleanup := newTestEtcdManager(t)
	defer cleanup()

	ctx := context.Background()
	key := PlansPrefix + "music"

	if err := manager.Put(ctx, key, `{"plan_id":"p1"}`); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != `{"plan_id":"p1"}` {
		t.Errorf("Expected stored value, got %q", value)
	}

	// The second read is served from cache
	if _, ok := manager.cache.Get(key); !ok {
		t.Error("Expected key to be cached after Get")
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := manager.cache.Get(key); ok {
		t.Error("Expected key to be evicted from cache after Delete")
	}

	value, err = manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if value != "" {
		t.Errorf("Expected empty value for deleted key, got %q", value)
	}
}

func TestEtcdManager_GetPrefix(t *testing.T) {
	manager, cleanup := newTestEtcdManager(t)
	defer cleanup()

	ctx := context.Background()
	entries := map[string]string{
		PlansPrefix + "music":  "a",
		PlansPrefix + "books":  "b",
		HostsPrefix + "host-1": "c",
	}
	for k, v := range entries {
		if err := manager.Put(ctx, k, v); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}

	result, err := manager.GetPrefix(ctx, PlansPrefix)
	if err != nil {
		t.Fatalf("GetPrefix failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 plan keys, got %d: %v", len(result), result)
	}
	if result[PlansPrefix+"books"] != "b" {
		t.Errorf("Unexpected value for books: %q", result[PlansPrefix+"books"])
	}
	if _, ok := result[HostsPrefix+"host-1"]; ok {
		t.Error("GetPrefix returned a key outside the prefix")
	}
}

func TestEtcdManager_PlanStore(t *testing.T) {
	manager, cleanup := newTestEtcdManager(t)
	defer cleanup()

	store := NewPlanStore(manager, true)
	ctx := context.Background()

	if err := store.Save(ctx, samplePlan("music", "p1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "music")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.PlanID != "p1" {
		t.Fatalf("Expected plan p1, got %+v", got)
	}
	if len(got.Members) != 2 {
		t.Errorf("Expected 2 members, got %d", len(got.Members))
	}
}
