package api

import (
	"sync"

	"freightopt/internal/sweep"
)

// EventBroker fans sweep progress events out to stream subscribers. The key
// is tenantID|shipmentDate.
type EventBroker interface {
	Subscribe(key string) chan sweep.ProgressEvent
	Unsubscribe(key string, ch chan sweep.ProgressEvent)
	Publish(key string, evt sweep.ProgressEvent)
}

func EventKey(tenantID, shipmentDate string) string { return tenantID + "|" + shipmentDate }

// Broker is the in-memory EventBroker. Slow subscribers drop events rather
// than stall the sweep.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan sweep.ProgressEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan sweep.ProgressEvent]struct{}{}}
}

func (b *Broker) Subscribe(key string) chan sweep.ProgressEvent {
	ch := make(chan sweep.ProgressEvent, 16)
	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = map[chan sweep.ProgressEvent]struct{}{}
	}
	b.subs[key][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(key string, ch chan sweep.ProgressEvent) {
	b.mu.Lock()
	if m := b.subs[key]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, key)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(key string, evt sweep.ProgressEvent) {
	b.mu.Lock()
	for ch := range b.subs[key] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
