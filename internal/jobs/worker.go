package jobs

import (
	"context"
	"log"
	"time"
)

// Sweeper is a periodic maintenance task over the conversation store.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Worker runs a sweeper on a fixed interval until stopped. The chat service
// has no job queue; the only background work is conversation maintenance.
type Worker struct {
	sweeper  Sweeper
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewWorker(sweeper Sweeper, interval time.Duration) *Worker {
	return &Worker{
		sweeper:  sweeper,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("maintenance worker started, sweeping every %v", w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("maintenance worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("maintenance worker stopped")
			return
		case <-ticker.C:
			if err := w.sweeper.Sweep(ctx); err != nil {
				log.Printf("sweep failed: %v", err)
			}
		}
	}
}

// Stop signals the loop and waits for the current sweep to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
