package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")                // Current directory
		v.AddConfigPath("./configs")        // Project configs directory
		v.AddConfigPath("/etc/clusterplan") // System-wide config
	}

	setDefaults(v)

	// CLUSTERPLAN_PLANNER_MAX_PARALLEL overrides planner.max_parallel
	v.SetEnvPrefix("CLUSTERPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)

	v.SetDefault("etcd.endpoints", d.Etcd.Endpoints)
	v.SetDefault("etcd.dial_timeout", d.Etcd.DialTimeout)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.group", d.Queue.Group)

	v.SetDefault("planner.default_architecture", d.Planner.DefaultArchitecture)
	v.SetDefault("planner.default_disk_speed", d.Planner.DefaultDiskSpeed)
	v.SetDefault("planner.default_storage_type", d.Planner.DefaultStorageType)
	v.SetDefault("planner.quorum_min_size", d.Planner.QuorumMinSize)
	v.SetDefault("planner.quorum_max_size", d.Planner.QuorumMaxSize)
	v.SetDefault("planner.max_parallel", d.Planner.MaxParallel)
	v.SetDefault("planner.compress_plans", d.Planner.CompressPlans)
	v.SetDefault("planner.state_dir", d.Planner.StateDir)

	v.SetDefault("agent.disk_path", d.Agent.DiskPath)
	v.SetDefault("agent.disk_speed", d.Agent.DiskSpeed)
	v.SetDefault("agent.storage_type", d.Agent.StorageType)
	v.SetDefault("agent.bandwidth_gbps", d.Agent.BandwidthGbps)
	v.SetDefault("agent.lease_ttl", d.Agent.LeaseTTL)
	v.SetDefault("agent.refresh_interval", d.Agent.RefreshInterval)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 5580,
			GRPCPort: 5581,
		},
		Etcd: EtcdConfig{
			Endpoints:   []string{"http://localhost:2379"},
			DialTimeout: 5 * time.Second,
		},
		Queue: QueueConfig{
			Type:        "nats",
			URL:         "nats://localhost:4222",
			RedisStream: "clusterplan",
			Group:       "clusterplan-group",
		},
		Planner: PlannerConfig{
			DefaultArchitecture: "x86_64",
			DefaultDiskSpeed:    "any",
			DefaultStorageType:  "any",
			QuorumMinSize:       1,
			QuorumMaxSize:       7,
			MaxParallel:         4,
			CompressPlans:       true,
			StateDir:            "./planstate",
		},
		Agent: AgentConfig{
			DiskPath:        "/",
			DiskSpeed:       "fast",
			StorageType:     "local",
			BandwidthGbps:   1,
			LeaseTTL:        30 * time.Second,
			RefreshInterval: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
