package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name: "same http and grpc port",
			mutate: func(c *Config) {
				c.Server.HTTPPort = 8080
				c.Server.GRPCPort = 8080
			},
			wantErr: true,
		},
		{
			name:    "no etcd endpoints",
			mutate:  func(c *Config) { c.Etcd.Endpoints = nil },
			wantErr: true,
		},
		{
			name:    "unknown queue type",
			mutate:  func(c *Config) { c.Queue.Type = "rabbitmq" },
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Queue.Type = "kafka"
				c.Queue.URL = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown default architecture",
			mutate:  func(c *Config) { c.Planner.DefaultArchitecture = "sparc" },
			wantErr: true,
		},
		{
			name: "quorum bounds inverted",
			mutate: func(c *Config) {
				c.Planner.QuorumMinSize = 5
				c.Planner.QuorumMaxSize = 3
			},
			wantErr: true,
		},
		{
			name:    "refresh slower than lease",
			mutate:  func(c *Config) { c.Agent.RefreshInterval = time.Minute },
			wantErr: true,
		},
		{
			name:    "invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 5580 {
		t.Errorf("expected HTTPPort 5580, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Planner.QuorumMinSize != 1 || cfg.Planner.QuorumMaxSize != 7 {
		t.Errorf("expected quorum bounds [1, 7], got [%d, %d]", cfg.Planner.QuorumMinSize, cfg.Planner.QuorumMaxSize)
	}

	if cfg.Planner.DefaultArchitecture != "x86_64" {
		t.Errorf("expected default architecture x86_64, got %s", cfg.Planner.DefaultArchitecture)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 7000
planner:
  max_parallel: 8
  default_disk_speed: fast
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("CLUSTERPLAN_PLANNER_QUORUM_MAX_SIZE", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 7000 {
		t.Errorf("expected HTTPPort 7000, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort != 5581 {
		t.Errorf("expected default GRPCPort 5581, got %d", cfg.Server.GRPCPort)
	}
	if cfg.Planner.MaxParallel != 8 {
		t.Errorf("expected MaxParallel 8, got %d", cfg.Planner.MaxParallel)
	}
	if cfg.Planner.DefaultDiskSpeed != "fast" {
		t.Errorf("expected disk speed fast, got %s", cfg.Planner.DefaultDiskSpeed)
	}
	if cfg.Planner.QuorumMaxSize != 5 {
		t.Errorf("expected env override QuorumMaxSize 5, got %d", cfg.Planner.QuorumMaxSize)
	}
	if cfg.Agent.LeaseTTL != 30*time.Second {
		t.Errorf("expected default lease ttl 30s, got %v", cfg.Agent.LeaseTTL)
	}
	if !cfg.IsDevelopment() {
		t.Error("config with debug/console should be development mode")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  http_port: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}

	if cfg := LoadOrDefault(path); cfg.Server.HTTPPort != 5580 {
		t.Errorf("LoadOrDefault should fall back to defaults, got port %d", cfg.Server.HTTPPort)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsProduction() {
		t.Error("default config should be production mode")
	}

	if got := cfg.GetServerAddress(); got != "0.0.0.0:5580" {
		t.Errorf("expected '0.0.0.0:5580', got %s", got)
	}

	if got := cfg.GetGRPCAddress(); got != "0.0.0.0:5581" {
		t.Errorf("expected '0.0.0.0:5581', got %s", got)
	}

	if got := cfg.GetStatePath("plans"); got != "planstate/plans" {
		t.Errorf("expected 'planstate/plans', got %s", got)
	}

	cfg.Agent.HostID = "node-7"
	if id, err := cfg.Agent.ResolveHostID(); err != nil || id != "node-7" {
		t.Errorf("expected node-7, got %s (%v)", id, err)
	}
}
