package jobs

import (
	"context"
	"log"
	"time"

	"freightopt/internal/sweep"
)

// Worker drains the queue and runs sweeps. Each worker goroutine polls on a
// ticker so an idle pool stays cheap and Stop is honored promptly.
type Worker struct {
	Queue      Queue
	Controller *sweep.Controller
	Stop       chan struct{}
	Workers    int
	RunTimeout time.Duration
}

func NewWorker(q Queue, c *sweep.Controller, workers int) *Worker {
	if workers <= 0 {
		workers = 2
	}
	return &Worker{
		Queue:      q,
		Controller: c,
		Stop:       make(chan struct{}),
		Workers:    workers,
		RunTimeout: 10 * time.Minute,
	}
}

func (w *Worker) Start() {
	for i := 0; i < w.Workers; i++ {
		go func() {
			ticker := time.NewTicker(250 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-w.Stop:
					return
				case <-ticker.C:
					w.processOnce()
				}
			}
		}()
	}
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.RunTimeout)
	defer cancel()
	req, ok, err := w.Queue.Dequeue(ctx)
	if err != nil || !ok {
		return
	}
	if _, err := w.Controller.Run(ctx, req); err != nil {
		log.Printf("sweep worker: %s/%s: %v", req.TenantID, req.ShipmentDate, err)
	}
}
