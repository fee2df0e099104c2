package api

import (
	"testing"
	"time"

	"freightopt/internal/sweep"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	key := EventKey("t1", "2026-09-01")
	ch := b.Subscribe(key)

	evt := sweep.ProgressEvent{TenantID: "t1", ShipmentDate: "2026-09-01", K: 3, Stage: "k_done"}
	b.Publish(key, evt)

	select {
	case got := <-ch:
		if got.Stage != "k_done" || got.K != 3 { t.Fatalf("got %+v", got) }
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	// events for another date never cross over
	b.Publish(EventKey("t1", "2026-09-02"), evt)
	select {
	case got := <-ch:
		t.Fatalf("unexpected event: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}

	b.Unsubscribe(key, ch)
	if _, ok := <-ch; ok { t.Fatal("channel should be closed after unsubscribe") }
}

func TestBrokerSlowSubscriberDrops(t *testing.T) {
	b := NewBroker()
	key := EventKey("t1", "2026-09-01")
	ch := b.Subscribe(key)
	// fill past the buffer; publish must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(key, sweep.ProgressEvent{K: i, Stage: "k_done"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	b.Unsubscribe(key, ch)
}
