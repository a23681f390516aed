package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

// Campaign lifecycle states. Transitions are monotonic along the success
// path; the only backward edge is failed -> pending on explicit retry.
const (
	StatusPending     CampaignStatus = "pending"
	StatusProcessing  CampaignStatus = "processing"
	StatusResearching CampaignStatus = "researching"
	StatusSending     CampaignStatus = "sending"
	StatusSent        CampaignStatus = "sent"
	StatusFailed      CampaignStatus = "failed"
)

// SenderInfo holds structured résumé-derived facts used to personalize
// generated emails. Any field may be empty.
type SenderInfo struct {
	Name            string   `json:"name,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Title           string   `json:"title,omitempty"`
	YearsExperience string   `json:"years_experience,omitempty"`
	TopSkills       []string `json:"top_skills,omitempty"`
	CurrentEmployer string   `json:"current_employer,omitempty"`
	Education       string   `json:"education,omitempty"`
	Location        string   `json:"location,omitempty"`
}

// Value implements driver.Valuer for JSONB storage
func (s SenderInfo) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval
func (s *SenderInfo) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for SenderInfo scan")
	}
}

// Campaign is one tracked outbound application attempt.
type Campaign struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name,omitempty"`
	CompanyName    string `json:"company_name"`
	CompanyWebsite string `json:"company_website,omitempty"`
	JobTitle       string `json:"job_title"`
	AdditionalInfo string `json:"additional_info,omitempty"`
	DocumentPath   string `json:"-"`

	Status       CampaignStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`

	SenderInfo    *SenderInfo `json:"sender_info,omitempty"`
	OriginalEmail string      `json:"original_email,omitempty"`
	EmailPreview  string      `json:"email_preview,omitempty"`

	// Threading fields are set together when the original send succeeds;
	// empty string means unset.
	MessageID       string `json:"message_id,omitempty"`
	ThreadID        string `json:"thread_id,omitempty"`
	InReplyTo       string `json:"in_reply_to,omitempty"`
	EmailReferences string `json:"email_references,omitempty"`

	FollowUpCount  int        `json:"follow_up_count"`
	EmailSentAt    *time.Time `json:"email_sent_at,omitempty"`
	LastFollowUpAt *time.Time `json:"last_follow_up_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Threaded reports whether the campaign carries the threading fields required
// for follow-ups.
func (c *Campaign) Threaded() bool {
	return c.MessageID != "" && c.ThreadID != ""
}

// FollowUp is one follow-up message belonging to a campaign.
type FollowUp struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	OwnerID    uuid.UUID `json:"owner_id"`

	FollowUpNumber int    `json:"followup_number"`
	Subject        string `json:"subject"`
	EmailContent   string `json:"email_content"`

	MessageID       string `json:"message_id"`
	InReplyTo       string `json:"in_reply_to"`
	EmailReferences string `json:"email_references"`

	SentAt    time.Time `json:"sent_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CampaignUpdate is a partial update of a campaign row. Nil fields are left
// untouched; the column mapping is static and lives in UpdateCampaign.
type CampaignUpdate struct {
	Status          *CampaignStatus
	ErrorMessage    *string
	SenderInfo      *SenderInfo
	OriginalEmail   *string
	EmailPreview    *string
	MessageID       *string
	ThreadID        *string
	InReplyTo       *string
	EmailReferences *string
	EmailSentAt     *time.Time
}

// ErrNotFound indicates a row does not exist or is not owned by the caller.
type ErrNotFound struct {
	Entity string
	ID     uuid.UUID
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}
