package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleManager implements Manager on a local pebble database. It backs
// the offline planning tool, which has no etcd to talk to.
type PebbleManager struct {
	db *pebble.DB
}

// NewPebbleManager opens (or creates) a pebble database at path
func NewPebbleManager(path string) (*PebbleManager, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open state at %s: %w", path, err)
	}
	return &PebbleManager{db: db}, nil
}

func (m *PebbleManager) Get(_ context.Context, key string) (string, error) {
	val, closer, err := m.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	defer func() { _ = closer.Close() }()

	return string(val), nil
}

func (m *PebbleManager) Put(_ context.Context, key, value string) error {
	if err := m.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("failed to put key: %w", err)
	}
	return nil
}

func (m *PebbleManager) Delete(_ context.Context, key string) error {
	if err := m.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (m *PebbleManager) GetPrefix(_ context.Context, prefix string) (map[string]string, error) {
	iter, err := m.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get prefix: %w", err)
	}
	defer func() { _ = iter.Close() }()

	result := make(map[string]string)
	for ok := iter.First(); ok; ok = iter.Next() {
		result[string(iter.Key())] = string(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to get prefix: %w", err)
	}

	return result, nil
}

func (m *PebbleManager) Close() error {
	return m.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
