package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout bounds a single API request, planning included
	DefaultRequestTimeout = 30 * time.Second

	// InventoryTimeout bounds reading the host snapshot and previous plans
	InventoryTimeout = 5 * time.Second

	// PublishTimeout bounds publishing plan events after a commit
	PublishTimeout = 5 * time.Second
)

// gRPC Timeouts
const (
	// GRPCShutdownTimeout is how long a graceful stop may take before forcing it
	GRPCShutdownTimeout = 10 * time.Second
)

// =============================================================================
// Queue Types
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	QueueTypeNATS   QueueType = "nats"
	QueueTypeRedis  QueueType = "redis"
	QueueTypeKafka  QueueType = "kafka"
	QueueTypeMemory QueueType = "memory"
)

// =============================================================================
// API Constants
// =============================================================================

const (
	// APIKeyHeader is the header carrying the API key
	APIKeyHeader = "X-API-Key"

	// MaxDeclarationBytes caps the size of a posted deployment declaration
	MaxDeclarationBytes = 4 * 1024 * 1024
)
