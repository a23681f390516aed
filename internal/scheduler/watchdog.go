package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/db"
)

const (
	defaultStuckAfter       = 30 * time.Minute
	defaultPendingStaleWait = 2 * time.Minute
	defaultWatchdogInterval = 5 * time.Minute
)

// Enqueuer resubmits a campaign for processing. Satisfied by the engine
// dispatcher.
type Enqueuer interface {
	Enqueue(campaignID, ownerID uuid.UUID) bool
}

// Watchdog recovers campaigns orphaned by a crash: intermediate states that
// stopped moving are force-failed, and stale pending campaigns are
// re-enqueued.
type Watchdog struct {
	store    Store
	queue    Enqueuer
	interval time.Duration

	stuckAfter  time.Duration
	pendingWait time.Duration
	now         func() time.Time
}

// NewWatchdog creates a Watchdog with default cutoffs.
func NewWatchdog(store Store, queue Enqueuer, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = defaultWatchdogInterval
	}
	return &Watchdog{
		store:       store,
		queue:       queue,
		interval:    interval,
		stuckAfter:  defaultStuckAfter,
		pendingWait: defaultPendingStaleWait,
		now:         time.Now,
	}
}

// Run executes watchdog passes on the configured interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep.
func (w *Watchdog) RunOnce(ctx context.Context) {
	now := w.now()
	w.failStuck(ctx, now.Add(-w.stuckAfter))
	w.requeuePending(ctx, now.Add(-w.pendingWait))
}

func (w *Watchdog) failStuck(ctx context.Context, cutoff time.Time) {
	stuck, err := w.store.ListStuckSince(ctx, cutoff)
	if err != nil {
		log.Printf("[watchdog] failed to list stuck campaigns: %v", err)
		return
	}

	for i := range stuck {
		c := &stuck[i]
		failed := db.StatusFailed
		msg := fmt.Sprintf("processing stalled in state %s", c.Status)
		if err := w.store.UpdateCampaign(ctx, c.ID, c.OwnerID, db.CampaignUpdate{
			Status:       &failed,
			ErrorMessage: &msg,
		}); err != nil {
			log.Printf("[watchdog] failed to fail stuck campaign %s: %v", c.ID, err)
			continue
		}
		log.Printf("[watchdog] campaign %s force-failed after stalling in %s", c.ID, c.Status)
	}
}

func (w *Watchdog) requeuePending(ctx context.Context, cutoff time.Time) {
	if w.queue == nil {
		return
	}
	pending, err := w.store.ListPendingSince(ctx, cutoff)
	if err != nil {
		log.Printf("[watchdog] failed to list stale pending campaigns: %v", err)
		return
	}

	for i := range pending {
		c := &pending[i]
		if w.queue.Enqueue(c.ID, c.OwnerID) {
			log.Printf("[watchdog] re-enqueued stale pending campaign %s", c.ID)
		}
	}
}
