package engine

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Processor runs one campaign end to end. Satisfied by *Engine.
type Processor interface {
	Process(ctx context.Context, campaignID, ownerID uuid.UUID) error
}

type job struct {
	campaignID uuid.UUID
	ownerID    uuid.UUID
}

// Dispatcher is the intake queue between the HTTP layer and the engine: a
// bounded channel drained by a fixed worker pool. Each campaign is in the
// queue or in a worker at most once at a time.
type Dispatcher struct {
	processor Processor
	jobs      chan job
	workers   int

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool

	wg      sync.WaitGroup
	started bool
}

// NewDispatcher creates a Dispatcher with the given worker count and queue
// capacity.
func NewDispatcher(p Processor, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		processor: p,
		jobs:      make(chan job, queueSize),
		workers:   workers,
		inFlight:  make(map[uuid.UUID]bool),
	}
}

// Start launches the worker pool. ctx cancellation stops workers after their
// current campaign finishes.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.started {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Enqueue submits a campaign for processing. It returns false when the queue
// is full or the campaign is already queued or running; callers treat that
// as backpressure, not an error, since the watchdog re-enqueues stale
// pending campaigns.
func (d *Dispatcher) Enqueue(campaignID, ownerID uuid.UUID) bool {
	d.mu.Lock()
	if d.inFlight[campaignID] {
		d.mu.Unlock()
		return false
	}
	d.inFlight[campaignID] = true
	d.mu.Unlock()

	select {
	case d.jobs <- job{campaignID: campaignID, ownerID: ownerID}:
		return true
	default:
		d.clear(campaignID)
		log.Printf("[dispatcher] queue full, dropping campaign %s", campaignID)
		return false
	}
}

// Stop closes the queue and waits for workers to drain it.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-d.jobs:
			if !ok {
				return
			}
			if err := d.processor.Process(ctx, j.campaignID, j.ownerID); err != nil {
				log.Printf("[dispatcher] worker %d: campaign %s: %v", id, j.campaignID, err)
			}
			d.clear(j.campaignID)
		}
	}
}

func (d *Dispatcher) clear(campaignID uuid.UUID) {
	d.mu.Lock()
	delete(d.inFlight, campaignID)
	d.mu.Unlock()
}
