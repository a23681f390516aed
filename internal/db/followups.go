package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AddFollowUp inserts a follow-up record and bumps the campaign's follow-up
// counters in one transaction, so a crash can never leave a sent follow-up
// unaccounted for.
func (db *DB) AddFollowUp(ctx context.Context, fu *FollowUp) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO follow_ups (campaign_id, owner_id, followup_number, subject,
			email_content, message_id, in_reply_to, email_references, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		fu.CampaignID, fu.OwnerID, fu.FollowUpNumber, fu.Subject,
		fu.EmailContent, fu.MessageID, fu.InReplyTo, fu.EmailReferences, fu.SentAt,
	).Scan(&fu.ID, &fu.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert follow-up: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE campaigns
		 SET follow_up_count = $1, last_follow_up_at = $2, updated_at = NOW()
		 WHERE id = $3 AND owner_id = $4 AND follow_up_count = $1 - 1`,
		fu.FollowUpNumber, fu.SentAt, fu.CampaignID, fu.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign follow-up counters: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Guard against a concurrent follow-up having advanced the counter
		return fmt.Errorf("follow-up %d conflicts with campaign %s state", fu.FollowUpNumber, fu.CampaignID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit follow-up: %w", err)
	}
	return nil
}

// ListFollowUps retrieves a campaign's follow-ups in send order
func (db *DB) ListFollowUps(ctx context.Context, campaignID, ownerID uuid.UUID) ([]FollowUp, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, campaign_id, owner_id, followup_number, subject, email_content,
			message_id, in_reply_to, email_references, sent_at, created_at
		 FROM follow_ups
		 WHERE campaign_id = $1 AND owner_id = $2
		 ORDER BY followup_number ASC`,
		campaignID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	var followUps []FollowUp
	for rows.Next() {
		var fu FollowUp
		if err := rows.Scan(
			&fu.ID, &fu.CampaignID, &fu.OwnerID, &fu.FollowUpNumber, &fu.Subject,
			&fu.EmailContent, &fu.MessageID, &fu.InReplyTo, &fu.EmailReferences,
			&fu.SentAt, &fu.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		followUps = append(followUps, fu)
	}
	return followUps, nil
}

// LastFollowUp retrieves the highest-numbered follow-up for a campaign, or
// nil when none exist yet. The follow-up path threads its next message off
// this record.
func (db *DB) LastFollowUp(ctx context.Context, campaignID, ownerID uuid.UUID) (*FollowUp, error) {
	followUps, err := db.ListFollowUps(ctx, campaignID, ownerID)
	if err != nil {
		return nil, err
	}
	if len(followUps) == 0 {
		return nil, nil
	}
	return &followUps[len(followUps)-1], nil
}
