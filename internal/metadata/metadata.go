// Package metadata stores computed plans and other planner state in a
// key-value backend (etcd for the service, pebble for the offline tool).
package metadata

import (
	"context"
)

// Key layout
const (
	RootPrefix    = "/clusterplan"
	PlansPrefix   = RootPrefix + "/plans/"
	HistoryPrefix = RootPrefix + "/history/"
	HostsPrefix   = RootPrefix + "/hosts/"
	RetiredPrefix = RootPrefix + "/retired/"
)

// Manager is a generic key-value store. Get returns "" for a missing key.
type Manager interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetPrefix(ctx context.Context, prefix string) (map[string]string, error)

	Close() error
}
