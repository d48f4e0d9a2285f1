// Package inventory tracks the hosts available for planning. Host agents
// register themselves under a lease; the planner reads a snapshot.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soltixdb/clusterplan/internal/metadata"
	"github.com/soltixdb/clusterplan/internal/models"
)

// Inventory reads registered hosts and operator retirement marks
type Inventory struct {
	kv metadata.Manager
}

// New creates an inventory over a key-value manager
func New(kv metadata.Manager) *Inventory {
	return &Inventory{kv: kv}
}

// Records returns every registered host record, sorted by id
func (i *Inventory) Records(ctx context.Context) ([]models.HostRecord, error) {
	kvs, err := i.kv.GetPrefix(ctx, metadata.HostsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}

	retired, err := i.retired(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.HostRecord, 0, len(kvs))
	for key, raw := range kvs {
		var rec models.HostRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("invalid host record at %s: %w", key, err)
		}
		if rec.ID == "" {
			rec.ID = strings.TrimPrefix(key, metadata.HostsPrefix)
		}
		if retired[rec.ID] {
			rec.Retired = true
		}
		records = append(records, rec)
	}

	models.SortRecords(records)
	return records, nil
}

// Snapshot returns the current host pool
func (i *Inventory) Snapshot(ctx context.Context) ([]models.Host, error) {
	records, err := i.Records(ctx)
	if err != nil {
		return nil, err
	}
	hosts := make([]models.Host, len(records))
	for n, rec := range records {
		hosts[n] = rec.Host
	}
	return hosts, nil
}

func (i *Inventory) retired(ctx context.Context) (map[string]bool, error) {
	kvs, err := i.kv.GetPrefix(ctx, metadata.RetiredPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list retired hosts: %w", err)
	}
	out := make(map[string]bool, len(kvs))
	for key := range kvs {
		out[strings.TrimPrefix(key, metadata.RetiredPrefix)] = true
	}
	return out, nil
}

// Retire marks a host for removal. It keeps serving its current clusters
// but is never chosen for new membership.
func (i *Inventory) Retire(ctx context.Context, hostID string) error {
	return i.kv.Put(ctx, metadata.RetiredPrefix+hostID, "true")
}

// Unretire clears the retirement mark of a host
func (i *Inventory) Unretire(ctx context.Context, hostID string) error {
	return i.kv.Delete(ctx, metadata.RetiredPrefix+hostID)
}
