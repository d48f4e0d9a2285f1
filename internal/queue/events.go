package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/models"
)

// Subjects plan events are published on
const (
	SubjectPlanCommitted = "clusterplan.plan.committed"
	SubjectQuorumChanged = "clusterplan.quorum.changed"
	SubjectPlanDeleted   = "clusterplan.plan.deleted"
)

// EventType names what happened to a plan
type EventType string

const (
	EventPlanCommitted EventType = "plan_committed"
	EventQuorumChanged EventType = "quorum_changed"
	EventPlanDeleted   EventType = "plan_deleted"
)

// PlanEvent is the message body of every plan event
type PlanEvent struct {
	Type        EventType          `json:"type"`
	Cluster     string             `json:"cluster"`
	ClusterType models.ClusterType `json:"cluster_type,omitempty"`
	PlanID      string             `json:"plan_id,omitempty"`
	Requested   int                `json:"requested,omitempty"`
	Allocated   int                `json:"allocated,omitempty"`
	Downscaled  bool               `json:"downscaled,omitempty"`
	Groups      int                `json:"groups,omitempty"`
	Joining     []string           `json:"joining,omitempty"`
	Retiring    []string           `json:"retiring,omitempty"`
	Time        time.Time          `json:"time"`
}

// PlanEvents builds the messages announcing a committed plan. A quorum
// change event follows when ensemble membership moves.
func PlanEvents(plan *models.ClusterPlan, now time.Time) ([]BatchMessage, error) {
	base := PlanEvent{
		Type:        EventPlanCommitted,
		Cluster:     plan.Cluster.ID,
		ClusterType: plan.Cluster.Type,
		PlanID:      plan.PlanID,
		Requested:   plan.Requested,
		Allocated:   plan.Allocated,
		Downscaled:  plan.Downscaled,
		Groups:      len(plan.Groups),
		Time:        now.UTC(),
	}

	data, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan event: %w", err)
	}
	msgs := []BatchMessage{{Subject: SubjectPlanCommitted, Data: data}}

	if plan.Quorum == nil {
		return msgs, nil
	}
	joining, retiring := plan.Quorum.Joining(), plan.Quorum.Retiring()
	if len(joining) == 0 && len(retiring) == 0 {
		return msgs, nil
	}

	change := PlanEvent{
		Type:        EventQuorumChanged,
		Cluster:     base.Cluster,
		ClusterType: base.ClusterType,
		PlanID:      base.PlanID,
		Joining:     joining,
		Retiring:    retiring,
		Time:        base.Time,
	}
	data, err = json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quorum event: %w", err)
	}
	return append(msgs, BatchMessage{Subject: SubjectQuorumChanged, Data: data}), nil
}

// DecodeEvent parses a plan event message
func DecodeEvent(data []byte) (*PlanEvent, error) {
	var ev PlanEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("invalid plan event: %w", err)
	}
	if ev.Cluster == "" {
		return nil, fmt.Errorf("invalid plan event: missing cluster")
	}
	return &ev, nil
}

// EventPublisher announces plan changes on a Publisher
type EventPublisher struct {
	pub    Publisher
	logger *logging.Logger
	now    func() time.Time
}

// NewEventPublisher creates an event publisher. A nil pub disables publishing.
func NewEventPublisher(pub Publisher, logger *logging.Logger) *EventPublisher {
	return &EventPublisher{pub: pub, logger: logger, now: time.Now}
}

// PlansCommitted publishes the events of every plan in one batch
func (p *EventPublisher) PlansCommitted(ctx context.Context, plans []*models.ClusterPlan) error {
	if p == nil || p.pub == nil || len(plans) == 0 {
		return nil
	}

	var msgs []BatchMessage
	now := p.now()
	for _, plan := range plans {
		m, err := PlanEvents(plan, now)
		if err != nil {
			return err
		}
		msgs = append(msgs, m...)
	}

	sent, err := p.pub.PublishBatch(ctx, msgs)
	if err != nil {
		return fmt.Errorf("failed to publish plan events: %w", err)
	}
	if sent < len(msgs) {
		p.logger.Warn("Some plan events were not published", "sent", sent, "total", len(msgs))
	}
	p.logger.Debug("Plan events published", "count", sent)
	return nil
}

// PlanDeleted publishes the removal of a cluster's plan
func (p *EventPublisher) PlanDeleted(ctx context.Context, cluster string) error {
	if p == nil || p.pub == nil {
		return nil
	}

	data, err := json.Marshal(PlanEvent{Type: EventPlanDeleted, Cluster: cluster, Time: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal plan event: %w", err)
	}
	if err := p.pub.Publish(ctx, SubjectPlanDeleted, data); err != nil {
		return fmt.Errorf("failed to publish plan event: %w", err)
	}
	return nil
}
