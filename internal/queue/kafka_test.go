package queue

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNewKafkaQueue_NoBrokers(t *testing.T) {
	if _, err := newKafkaQueue(KafkaConfig{}); err == nil {
		t.Fatal("Expected error without brokers")
	}
}

func TestNewKafkaQueue_Defaults(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.config.GroupID != "clusterplan-group" {
		t.Errorf("Expected default group, got %q", q.config.GroupID)
	}
	if q.config.BatchTimeout != 10*time.Millisecond {
		t.Errorf("Expected default batch timeout, got %v", q.config.BatchTimeout)
	}
	if q.config.MaxAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", q.config.MaxAttempts)
	}
}

func TestKafkaQueue_WriterReused(t *testing.T) {
	q, _ := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	defer func() { _ = q.Close() }()

	w1 := q.writer(SubjectPlanCommitted)
	w2 := q.writer(SubjectPlanCommitted)
	if w1 != w2 {
		t.Error("Expected the same writer for a topic")
	}
	if q.writer(SubjectQuorumChanged) == w1 {
		t.Error("Expected a separate writer per topic")
	}
	if q.Stats("unknown").Writes != 0 {
		t.Error("Expected empty stats for an unknown topic")
	}
}

func TestKafkaQueue_SubscribeLifecycle(t *testing.T) {
	q, _ := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})

	noop := func([]byte) error { return nil }
	if err := q.Subscribe("topic", noop); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Subscribe("topic", noop); err == nil {
		t.Error("Expected error on second subscribe")
	}
	if err := q.Unsubscribe("topic"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if err := q.Unsubscribe("topic"); err == nil {
		t.Error("Expected error when not subscribed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestKafkaQueue_PublishBatchEmpty(t *testing.T) {
	q, _ := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	defer func() { _ = q.Close() }()

	sent, err := q.PublishBatch(context.Background(), nil)
	if err != nil || sent != 0 {
		t.Errorf("Empty batch: sent=%d err=%v", sent, err)
	}
}

func TestKafkaQueue_Publish(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if os.Getenv("KAFKA_TEST") != "1" || brokers == "" {
		t.Skip("Kafka not available, set KAFKA_TEST=1 and KAFKA_BROKERS")
	}

	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{brokers}})
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.Publish(ctx, "clusterplan-test", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}
