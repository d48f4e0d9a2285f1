package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/metadata"
	"github.com/soltixdb/clusterplan/internal/models"
)

// HostRegistration keeps one host registered in the inventory under a lease
type HostRegistration struct {
	etcdClient *clientv3.Client
	probe      ProbeFunc
	ttl        time.Duration
	refresh    time.Duration
	logger     *logging.Logger

	mu      sync.Mutex
	leaseID clientv3.LeaseID
	record  models.HostRecord
}

// NewHostRegistration creates a registration for record. Resources of the
// record are filled in by probe on every refresh.
func NewHostRegistration(
	etcdClient *clientv3.Client,
	record models.HostRecord,
	probe ProbeFunc,
	ttl, refresh time.Duration,
	logger *logging.Logger,
) *HostRegistration {
	if ttl < time.Second {
		ttl = 30 * time.Second
	}
	if refresh <= 0 {
		refresh = ttl / 3
	}
	return &HostRegistration{
		etcdClient: etcdClient,
		probe:      probe,
		ttl:        ttl,
		refresh:    refresh,
		logger:     logger,
		record:     record,
	}
}

func hostKey(id string) string {
	return metadata.HostsPrefix + id
}

// Record returns the last registered host record
func (r *HostRegistration) Record() models.HostRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record
}

// Register probes the host, publishes its record under a fresh lease and
// starts the keep-alive loop, which stops when ctx is cancelled.
func (r *HostRegistration) Register(ctx context.Context) error {
	lease, err := r.etcdClient.Grant(ctx, int64(r.ttl/time.Second))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	r.mu.Lock()
	r.leaseID = lease.ID
	r.mu.Unlock()

	if err := r.publish(ctx); err != nil {
		return err
	}

	record := r.Record()
	r.logger.Info("Host registered",
		"host_id", record.ID,
		"address", record.Address,
		"resources", record.Resources.String(),
		"lease_id", int64(lease.ID),
	)

	go r.keepAlive(ctx)
	return nil
}

// publish re-probes the host and writes its record under the current lease
func (r *HostRegistration) publish(ctx context.Context) error {
	resources, err := r.probe()
	if err != nil {
		return fmt.Errorf("failed to probe host: %w", err)
	}

	r.mu.Lock()
	r.record.Resources = resources
	r.record.UpdatedAt = time.Now().UTC()
	record := r.record
	leaseID := r.leaseID
	r.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal host record: %w", err)
	}

	if _, err := r.etcdClient.Put(ctx, hostKey(record.ID), string(data), clientv3.WithLease(leaseID)); err != nil {
		return fmt.Errorf("failed to register host: %w", err)
	}
	return nil
}

func (r *HostRegistration) keepAlive(ctx context.Context) {
	r.mu.Lock()
	leaseID := r.leaseID
	r.mu.Unlock()

	ch, err := r.etcdClient.KeepAlive(ctx, leaseID)
	if err != nil {
		r.logger.Error("Failed to start keep-alive", "error", err)
		return
	}

	ticker := time.NewTicker(r.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Keep-alive stopped")
			return

		case ka, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				r.logger.Warn("Keep-alive channel closed, re-registering")
				if err := r.Register(ctx); err != nil {
					r.logger.Error("Failed to re-register", "error", err)
				}
				return
			}
			if ka != nil {
				r.logger.Debug("Heartbeat sent", "lease_id", int64(leaseID), "ttl", ka.TTL)
			}

		case <-ticker.C:
			if err := r.publish(ctx); err != nil {
				r.logger.Error("Failed to refresh host record", "error", err)
			}
		}
	}
}

// Deregister removes the host record and revokes its lease
func (r *HostRegistration) Deregister(ctx context.Context) error {
	record := r.Record()
	r.logger.Info("Deregistering host", "host_id", record.ID)

	_, err := r.etcdClient.Delete(ctx, hostKey(record.ID))
	if err != nil {
		r.logger.Error("Failed to delete host key", "error", err)
	}

	r.mu.Lock()
	leaseID := r.leaseID
	r.mu.Unlock()

	if leaseID != 0 {
		if _, revokeErr := r.etcdClient.Revoke(ctx, leaseID); revokeErr != nil {
			r.logger.Error("Failed to revoke lease", "error", revokeErr)
			if err == nil {
				err = revokeErr
			}
		}
	}
	return err
}
