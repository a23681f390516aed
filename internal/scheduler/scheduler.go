// Package scheduler runs the periodic background passes: sending due
// follow-ups and sweeping campaigns that a crash left behind. Eligibility is
// a pure function of campaign state and a clock, so it tests without wall
// time.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/db"
)

// Follow-up timing: the first goes out three days after the original email,
// the second seven days after the first.
const (
	FirstFollowUpAfter  = 72 * time.Hour
	SecondFollowUpAfter = 7 * 24 * time.Hour
)

const defaultInterval = 15 * time.Minute

// Store is the campaign persistence the scheduler depends on.
type Store interface {
	ListFollowUpCandidates(ctx context.Context) ([]db.Campaign, error)
	ListStuckSince(ctx context.Context, cutoff time.Time) ([]db.Campaign, error)
	ListPendingSince(ctx context.Context, cutoff time.Time) ([]db.Campaign, error)
	UpdateCampaign(ctx context.Context, id, ownerID uuid.UUID, upd db.CampaignUpdate) error
}

// FollowUpSender sends the next follow-up for a campaign. Satisfied by the
// engine.
type FollowUpSender interface {
	SendFollowUp(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.FollowUp, error)
}

// Eligible reports whether a campaign is due its next follow-up at the given
// instant. It assumes the store already filtered to sent campaigns with
// follow-up capacity left.
func Eligible(c *db.Campaign, now time.Time) bool {
	switch c.FollowUpCount {
	case 0:
		return c.EmailSentAt != nil && now.Sub(*c.EmailSentAt) >= FirstFollowUpAfter
	case 1:
		return c.LastFollowUpAt != nil && now.Sub(*c.LastFollowUpAt) >= SecondFollowUpAfter
	default:
		return false
	}
}

// Scheduler periodically sends due follow-ups.
type Scheduler struct {
	store    Store
	sender   FollowUpSender
	interval time.Duration
	now      func() time.Time
}

// New creates a Scheduler. A non-positive interval falls back to the
// default.
func New(store Store, sender FollowUpSender, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		store:    store,
		sender:   sender,
		interval: interval,
		now:      time.Now,
	}
}

// Run executes follow-up passes on the configured interval until ctx is
// done. The first pass runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce sends every due follow-up, sequentially. One campaign's failure
// never stops the rest of the batch.
func (s *Scheduler) RunOnce(ctx context.Context) {
	candidates, err := s.store.ListFollowUpCandidates(ctx)
	if err != nil {
		log.Printf("[scheduler] failed to list candidates: %v", err)
		return
	}

	now := s.now()
	sent := 0
	for i := range candidates {
		c := &candidates[i]
		if !Eligible(c, now) {
			continue
		}
		if !c.Threaded() {
			// Legacy rows sent before threading existed; nothing to chain off
			log.Printf("[scheduler] campaign %s has no threading state, skipping follow-up", c.ID)
			continue
		}
		if ctx.Err() != nil {
			return
		}

		if _, err := s.sender.SendFollowUp(ctx, c.ID, c.OwnerID); err != nil {
			log.Printf("[scheduler] follow-up for campaign %s failed: %v", c.ID, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Printf("[scheduler] sent %d follow-up(s)", sent)
	}
}
