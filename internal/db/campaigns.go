package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// campaignColumns is the column list shared by every campaign SELECT.
const campaignColumns = `id, owner_id, recipient_email, recipient_name, company_name,
	company_website, job_title, additional_info, document_path, status,
	COALESCE(error_message, ''), sender_info, COALESCE(original_email, ''),
	COALESCE(email_preview, ''), COALESCE(message_id, ''), COALESCE(thread_id, ''),
	COALESCE(in_reply_to, ''), COALESCE(email_references, ''), follow_up_count,
	email_sent_at, last_follow_up_at, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*Campaign, error) {
	var c Campaign
	var senderInfoBytes []byte

	err := row.Scan(
		&c.ID, &c.OwnerID, &c.RecipientEmail, &c.RecipientName, &c.CompanyName,
		&c.CompanyWebsite, &c.JobTitle, &c.AdditionalInfo, &c.DocumentPath, &c.Status,
		&c.ErrorMessage, &senderInfoBytes, &c.OriginalEmail,
		&c.EmailPreview, &c.MessageID, &c.ThreadID,
		&c.InReplyTo, &c.EmailReferences, &c.FollowUpCount,
		&c.EmailSentAt, &c.LastFollowUpAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(senderInfoBytes) > 0 {
		var info SenderInfo
		if err := json.Unmarshal(senderInfoBytes, &info); err != nil {
			return nil, fmt.Errorf("failed to decode sender_info: %w", err)
		}
		c.SenderInfo = &info
	}

	return &c, nil
}

// CreateCampaign inserts a new campaign in pending state and fills in its
// generated ID and timestamps.
func (db *DB) CreateCampaign(ctx context.Context, c *Campaign) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO campaigns (owner_id, recipient_email, recipient_name, company_name,
			company_website, job_title, additional_info, document_path, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		c.OwnerID, c.RecipientEmail, c.RecipientName, c.CompanyName,
		c.CompanyWebsite, c.JobTitle, c.AdditionalInfo, c.DocumentPath, StatusPending,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	c.Status = StatusPending
	return nil
}

// GetCampaign retrieves a campaign scoped to its owner. Returns nil when not
// found.
func (db *DB) GetCampaign(ctx context.Context, id, ownerID uuid.UUID) (*Campaign, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	c, err := scanCampaign(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns retrieves an owner's campaigns, newest first
func (db *DB) ListCampaigns(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Campaign, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, total, nil
}

// UpdateCampaign applies a partial update to a campaign row. Only non-nil
// fields of upd are written; the field-to-column mapping is fixed here.
func (db *DB) UpdateCampaign(ctx context.Context, id, ownerID uuid.UUID, upd CampaignUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{id, ownerID}
	argNum := 3

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}

	if upd.Status != nil {
		addSet("status", *upd.Status)
	}
	if upd.ErrorMessage != nil {
		if *upd.ErrorMessage == "" {
			sets = append(sets, "error_message = NULL")
		} else {
			addSet("error_message", *upd.ErrorMessage)
		}
	}
	if upd.SenderInfo != nil {
		jsonBytes, err := json.Marshal(upd.SenderInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal sender_info: %w", err)
		}
		addSet("sender_info", jsonBytes)
	}
	if upd.OriginalEmail != nil {
		addSet("original_email", *upd.OriginalEmail)
	}
	if upd.EmailPreview != nil {
		addSet("email_preview", *upd.EmailPreview)
	}
	if upd.MessageID != nil {
		addSet("message_id", *upd.MessageID)
	}
	if upd.ThreadID != nil {
		addSet("thread_id", *upd.ThreadID)
	}
	if upd.InReplyTo != nil {
		addSet("in_reply_to", *upd.InReplyTo)
	}
	if upd.EmailReferences != nil {
		addSet("email_references", *upd.EmailReferences)
	}
	if upd.EmailSentAt != nil {
		addSet("email_sent_at", *upd.EmailSentAt)
	}

	query := fmt.Sprintf(
		`UPDATE campaigns SET %s WHERE id = $1 AND owner_id = $2`,
		joinSets(sets),
	)

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "campaign", ID: id}
	}
	return nil
}

func joinSets(sets []string) string {
	out := ""
	for i, s := range sets {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// DeleteCampaign removes a campaign; follow-ups cascade via the schema.
// Returns the stored document path so the caller can remove the uploaded
// file as well.
func (db *DB) DeleteCampaign(ctx context.Context, id, ownerID uuid.UUID) (string, error) {
	var documentPath string
	err := db.pool.QueryRow(ctx,
		`DELETE FROM campaigns WHERE id = $1 AND owner_id = $2 RETURNING document_path`,
		id, ownerID,
	).Scan(&documentPath)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", &ErrNotFound{Entity: "campaign", ID: id}
		}
		return "", fmt.Errorf("failed to delete campaign: %w", err)
	}
	return documentPath, nil
}

// ListFollowUpCandidates retrieves sent campaigns that could still receive a
// follow-up: fewer than two sent, sender info and threading fields present.
// The time-based eligibility rule is applied by the scheduler.
func (db *DB) ListFollowUpCandidates(ctx context.Context) ([]Campaign, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE status = $1
		   AND follow_up_count < 2
		   AND sender_info IS NOT NULL
		 ORDER BY email_sent_at ASC`,
		StatusSent,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up candidates: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// ListStuckSince retrieves campaigns stuck in an intermediate phase since
// before the cutoff. The watchdog force-fails them.
func (db *DB) ListStuckSince(ctx context.Context, cutoff time.Time) ([]Campaign, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE status IN ($1, $2, $3) AND updated_at < $4
		 ORDER BY updated_at ASC`,
		StatusProcessing, StatusResearching, StatusSending, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// ListPendingSince retrieves pending campaigns last touched before the
// cutoff. These are retried campaigns waiting for pickup or campaigns whose
// background run was lost to a crash.
func (db *DB) ListPendingSince(ctx context.Context, cutoff time.Time) ([]Campaign, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE status = $1 AND updated_at < $2
		 ORDER BY updated_at ASC`,
		StatusPending, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}
