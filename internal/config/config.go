package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Planner PlannerConfig `mapstructure:"planner"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PlannerConfig controls how plans are computed and stored
type PlannerConfig struct {
	DefaultArchitecture string `mapstructure:"default_architecture"` // used when a request leaves architecture unset (default: x86_64)
	DefaultDiskSpeed    string `mapstructure:"default_disk_speed"`   // default: any
	DefaultStorageType  string `mapstructure:"default_storage_type"` // default: any
	QuorumMinSize       int    `mapstructure:"quorum_min_size"`
	QuorumMaxSize       int    `mapstructure:"quorum_max_size"`
	MaxParallel         int    `mapstructure:"max_parallel"` // clusters resolved concurrently, 0 = unbounded
	CompressPlans       bool   `mapstructure:"compress_plans"`
	StateDir            string `mapstructure:"state_dir"` // local plan store used by planctl
}

// AgentConfig configures the host agent that registers a host in the inventory
type AgentConfig struct {
	HostID            string        `mapstructure:"host_id"` // defaults to the hostname
	Address           string        `mapstructure:"address"`
	DiskPath          string        `mapstructure:"disk_path"` // mount point measured for disk size
	DiskSpeed         string        `mapstructure:"disk_speed"`
	StorageType       string        `mapstructure:"storage_type"`
	BandwidthGbps     float64       `mapstructure:"bandwidth_gbps"`
	ExclusiveEligible bool          `mapstructure:"exclusive_eligible"`
	LeaseTTL          time.Duration `mapstructure:"lease_ttl"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address for server (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
	GRPCPort int    `mapstructure:"grpc_port"` // gRPC health server port
}

// EtcdConfig represents etcd configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	Group string `mapstructure:"group"` // Consumer group for redis and kafka (default: "clusterplan-group")

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Stream prefix, also names NATS streams (default: "clusterplan")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Etcd.Validate(); err != nil {
		return fmt.Errorf("etcd config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Planner.Validate(); err != nil {
		return fmt.Errorf("planner config: %w", err)
	}

	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc_port: %d", c.GRPCPort)
	}

	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("http_port and grpc_port cannot be the same")
	}

	return nil
}

// Validate validates etcd configuration
func (c *EtcdConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required")
	}

	if c.DialTimeout <= 0 {
		return fmt.Errorf("etcd.dial_timeout must be positive")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "nats", "redis", "memory":
	case "kafka":
		if len(c.KafkaBrokers) == 0 && c.URL == "" {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory")
	}
	return nil
}

// Validate validates planner configuration
func (c *PlannerConfig) Validate() error {
	valid := map[string]map[string]bool{
		"default_architecture": {"any": true, "x86_64": true, "arm64": true},
		"default_disk_speed":   {"any": true, "fast": true, "slow": true},
		"default_storage_type": {"any": true, "local": true, "remote": true},
	}
	for key, value := range map[string]string{
		"default_architecture": c.DefaultArchitecture,
		"default_disk_speed":   c.DefaultDiskSpeed,
		"default_storage_type": c.DefaultStorageType,
	} {
		if value != "" && !valid[key][value] {
			return fmt.Errorf("planner.%s has unknown value '%s'", key, value)
		}
	}

	if c.QuorumMinSize < 1 {
		return fmt.Errorf("planner.quorum_min_size must be at least 1")
	}

	if c.QuorumMaxSize < c.QuorumMinSize {
		return fmt.Errorf("planner.quorum_max_size cannot be less than planner.quorum_min_size")
	}

	if c.MaxParallel < 0 {
		return fmt.Errorf("planner.max_parallel must not be negative")
	}

	return nil
}

// Validate validates agent configuration
func (c *AgentConfig) Validate() error {
	if c.LeaseTTL < time.Second {
		return fmt.Errorf("agent.lease_ttl must be at least 1s")
	}

	if c.RefreshInterval <= 0 || c.RefreshInterval >= c.LeaseTTL {
		return fmt.Errorf("agent.refresh_interval must be positive and shorter than agent.lease_ttl")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
