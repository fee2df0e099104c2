// Package jobs holds the sweep request queue and the worker pool that drains
// it.
package jobs

import (
	"context"

	"freightopt/internal/model"
)

// Queue hands sweep requests from the API to the workers. Dequeue returns
// ok=false when nothing is pending.
type Queue interface {
	Enqueue(ctx context.Context, req model.SweepRequest) error
	Dequeue(ctx context.Context) (model.SweepRequest, bool, error)
}

// MemoryQueue is the single-process queue used in dev and tests.
type MemoryQueue struct {
	ch chan model.SweepRequest
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan model.SweepRequest, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, req model.SweepRequest) error {
	select {
	case q.ch <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (model.SweepRequest, bool, error) {
	select {
	case req := <-q.ch:
		return req, true, nil
	case <-ctx.Done():
		return model.SweepRequest{}, false, ctx.Err()
	default:
		return model.SweepRequest{}, false, nil
	}
}
