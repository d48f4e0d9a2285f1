package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/soltixdb/clusterplan/internal/models"
)

// snappyMagic marks a compressed plan record. Plain records are JSON and
// always start with '{'.
var snappyMagic = []byte("SNP1")

// PlanStore persists the latest plan of each cluster plus a history of
// every plan id that was committed.
type PlanStore struct {
	kv       Manager
	compress bool
	now      func() time.Time
}

// historyRecord is a committed plan with its position in the cluster's
// commit order
type historyRecord struct {
	Seq         int64               `json:"seq"`
	CommittedAt time.Time           `json:"committed_at"`
	Plan        *models.ClusterPlan `json:"plan"`
}

// NewPlanStore creates a plan store over a key-value manager
func NewPlanStore(kv Manager, compress bool) *PlanStore {
	return &PlanStore{kv: kv, compress: compress, now: time.Now}
}

func planKey(cluster string) string {
	return PlansPrefix + cluster
}

func historyKey(cluster, planID string) string {
	return HistoryPrefix + cluster + "/" + planID
}

func (s *PlanStore) encode(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan: %w", err)
	}
	if !s.compress {
		return string(data), nil
	}
	out := append([]byte(nil), snappyMagic...)
	out = append(out, snappy.Encode(nil, data)...)
	return string(out), nil
}

func decode(raw string, v interface{}) error {
	data := []byte(raw)
	if bytes.HasPrefix(data, snappyMagic) {
		decoded, err := snappy.Decode(nil, data[len(snappyMagic):])
		if err != nil {
			return fmt.Errorf("snappy decompress failed: %w", err)
		}
		data = decoded
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return nil
}

func decodePlan(raw string) (*models.ClusterPlan, error) {
	var plan models.ClusterPlan
	if err := decode(raw, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Save stores plan as the current plan of its cluster
func (s *PlanStore) Save(ctx context.Context, plan *models.ClusterPlan) error {
	if plan == nil || plan.Cluster.ID == "" {
		return fmt.Errorf("plan has no cluster id")
	}

	value, err := s.encode(plan)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, planKey(plan.Cluster.ID), value); err != nil {
		return err
	}
	if plan.PlanID == "" {
		return nil
	}
	return s.appendHistory(ctx, plan)
}

// appendHistory records plan after every earlier commit of its cluster.
// A plan id that is already in the history keeps its first position.
func (s *PlanStore) appendHistory(ctx context.Context, plan *models.ClusterPlan) error {
	records, err := s.historyRecords(ctx, plan.Cluster.ID)
	if err != nil {
		return err
	}

	var seq int64
	for _, r := range records {
		if r.id == plan.PlanID {
			return nil
		}
		seq = max(seq, r.Seq)
	}

	value, err := s.encode(historyRecord{Seq: seq + 1, CommittedAt: s.now().UTC(), Plan: plan})
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, historyKey(plan.Cluster.ID, plan.PlanID), value)
}

type committed struct {
	historyRecord
	id string
}

// historyRecords returns the committed plans of a cluster in commit order
func (s *PlanStore) historyRecords(ctx context.Context, cluster string) ([]committed, error) {
	prefix := HistoryPrefix + cluster + "/"
	kvs, err := s.kv.GetPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	records := make([]committed, 0, len(kvs))
	for key, raw := range kvs {
		var r historyRecord
		if err := decode(raw, &r); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		records = append(records, committed{historyRecord: r, id: strings.TrimPrefix(key, prefix)})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Seq != records[j].Seq {
			return records[i].Seq < records[j].Seq
		}
		return records[i].id < records[j].id
	})
	return records, nil
}

// Get returns the current plan of a cluster, or nil if none was saved
func (s *PlanStore) Get(ctx context.Context, cluster string) (*models.ClusterPlan, error) {
	raw, err := s.kv.Get(ctx, planKey(cluster))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return decodePlan(raw)
}

// GetByID returns a committed plan from history, or nil if unknown
func (s *PlanStore) GetByID(ctx context.Context, cluster, planID string) (*models.ClusterPlan, error) {
	raw, err := s.kv.Get(ctx, historyKey(cluster, planID))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var r historyRecord
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	return r.Plan, nil
}

// LoadAll returns the current plans keyed by cluster id
func (s *PlanStore) LoadAll(ctx context.Context) (map[string]*models.ClusterPlan, error) {
	kvs, err := s.kv.GetPrefix(ctx, PlansPrefix)
	if err != nil {
		return nil, err
	}

	plans := make(map[string]*models.ClusterPlan, len(kvs))
	for key, raw := range kvs {
		plan, err := decodePlan(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		plans[strings.TrimPrefix(key, PlansPrefix)] = plan
	}
	return plans, nil
}

// List returns the current plans ordered by cluster id
func (s *PlanStore) List(ctx context.Context) ([]*models.ClusterPlan, error) {
	plans, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(plans))
	for id := range plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*models.ClusterPlan, 0, len(ids))
	for _, id := range ids {
		out = append(out, plans[id])
	}
	return out, nil
}

// History returns the ids of every plan committed for a cluster, oldest first
func (s *PlanStore) History(ctx context.Context, cluster string) ([]string, error) {
	records, err := s.historyRecords(ctx, cluster)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.id)
	}
	return ids, nil
}

// Delete removes the current plan and the history of a cluster
func (s *PlanStore) Delete(ctx context.Context, cluster string) error {
	ids, err := s.History(ctx, cluster)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.kv.Delete(ctx, historyKey(cluster, id)); err != nil {
			return err
		}
	}
	return s.kv.Delete(ctx, planKey(cluster))
}
