package metadata

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/soltixdb/clusterplan/internal/config"
)

// EtcdManager implements Manager using etcd
type EtcdManager struct {
	client *clientv3.Client
	cache  *KVCache
}

// NewEtcdManager creates a new etcd-based metadata manager
func NewEtcdManager(cfg config.EtcdConfig) (*EtcdManager, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdManager{
		client: client,
		cache:  NewKVCache(30 * time.Second),
	}, nil
}

// Client returns the underlying etcd client, used for leases
func (m *EtcdManager) Client() *clientv3.Client {
	return m.client
}

// Get retrieves a value by key
func (m *EtcdManager) Get(ctx context.Context, key string) (string, error) {
	if cached, ok := m.cache.Get(key); ok {
		return cached, nil
	}

	resp, err := m.client.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return "", nil
	}

	value := string(resp.Kvs[0].Value)
	m.cache.Set(key, value)
	return value, nil
}

// Put stores a key-value pair
func (m *EtcdManager) Put(ctx context.Context, key, value string) error {
	if _, err := m.client.Put(ctx, key, value); err != nil {
		return fmt.Errorf("failed to put key: %w", err)
	}
	m.cache.Set(key, value)
	return nil
}

// Delete removes a key from etcd
func (m *EtcdManager) Delete(ctx context.Context, key string) error {
	if _, err := m.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	m.cache.Delete(key)
	return nil
}

// GetPrefix retrieves all keys with a given prefix. It always reads
// through to etcd since leased keys may expire behind the cache.
func (m *EtcdManager) GetPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	resp, err := m.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get prefix: %w", err)
	}

	result := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		result[string(kv.Key)] = string(kv.Value)
	}

	return result, nil
}

// Close stops the cache and closes the client
func (m *EtcdManager) Close() error {
	if m.cache != nil {
		m.cache.Stop()
	}
	return m.client.Close()
}
