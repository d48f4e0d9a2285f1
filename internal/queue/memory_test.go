package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls condition until it holds or the timeout expires
func waitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for condition")
}

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	var mu sync.Mutex
	var got []string
	err := q.Subscribe("plans", func(data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(data))
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for _, m := range []string{"a", "b", "c"} {
		if err := q.Publish(context.Background(), "plans", []byte(m)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "a" || got[2] != "c" {
		t.Errorf("Messages out of order: %v", got)
	}
}

func TestMemoryQueue_PublishCopiesData(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	data := []byte("original")
	if err := q.Publish(context.Background(), "s", data); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	data[0] = 'X'

	received := make(chan string, 1)
	_ = q.Subscribe("s", func(d []byte) error {
		received <- string(d)
		return nil
	})

	select {
	case msg := <-received:
		if msg != "original" {
			t.Errorf("Expected original data, got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No message received")
	}
}

func TestMemoryQueue_PublishFullChannel(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	// Fill the channel to capacity
	for i := 0; i < memoryQueueCapacity; i++ {
		if err := q.Publish(context.Background(), "full", []byte("x")); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}
	if q.Pending("full") != memoryQueueCapacity {
		t.Errorf("Expected %d pending, got %d", memoryQueueCapacity, q.Pending("full"))
	}

	if err := q.Publish(context.Background(), "full", []byte("x")); err == nil {
		t.Error("Expected error when channel is full")
	}
}

func TestMemoryQueue_PublishBatch(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	sent, err := q.PublishBatch(context.Background(), []BatchMessage{
		{Subject: "a", Data: []byte("1")},
		{Subject: "b", Data: []byte("2")},
		{Subject: "a", Data: []byte("3")},
	})
	if err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}
	if sent != 3 {
		t.Errorf("Expected 3 sent, got %d", sent)
	}
	if q.Pending("a") != 2 || q.Pending("b") != 1 {
		t.Errorf("Unexpected pending counts: a=%d b=%d", q.Pending("a"), q.Pending("b"))
	}

	sent, err = q.PublishBatch(context.Background(), nil)
	if err != nil || sent != 0 {
		t.Errorf("Empty batch: sent=%d err=%v", sent, err)
	}
}

func TestMemoryQueue_SubscribeTwice(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	noop := func([]byte) error { return nil }
	if err := q.Subscribe("s", noop); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Subscribe("s", noop); err == nil {
		t.Error("Expected error on second subscribe")
	}
}

func TestMemoryQueue_UnsubscribeStopsDelivery(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	var count atomic.Int32
	_ = q.Subscribe("s", func([]byte) error {
		count.Add(1)
		return nil
	})

	_ = q.Publish(context.Background(), "s", []byte("1"))
	waitFor(t, func() bool { return count.Load() == 1 }, 2*time.Second)

	if err := q.Unsubscribe("s"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := q.Unsubscribe("s"); err == nil {
		t.Error("Expected error on second unsubscribe")
	}

	time.Sleep(20 * time.Millisecond)
	_ = q.Publish(context.Background(), "s", []byte("2"))
	time.Sleep(50 * time.Millisecond)

	if count.Load() != 1 {
		t.Errorf("Expected no delivery after unsubscribe, got %d", count.Load())
	}
	if q.Pending("s") != 1 {
		t.Errorf("Expected message to stay pending, got %d", q.Pending("s"))
	}
}

func TestMemoryQueue_Close(t *testing.T) {
	q := newMemoryQueue()
	_ = q.Subscribe("s", func([]byte) error { return nil })

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if err := q.Publish(context.Background(), "s", []byte("x")); err == nil {
		t.Error("Expected publish on closed queue to fail")
	}
	if err := q.Subscribe("s", func([]byte) error { return nil }); err == nil {
		t.Error("Expected subscribe on closed queue to fail")
	}
}

func TestMemoryQueue_ConcurrentPublish(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = q.Publish(context.Background(), "s", []byte("x"))
			}
		}()
	}
	wg.Wait()

	if q.Pending("s") != 500 {
		t.Errorf("Expected 500 pending, got %d", q.Pending("s"))
	}
}
