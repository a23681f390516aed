// Package types defines the request and response shapes of the HTTP API.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/db"
)

var validate = validator.New()

// CreateCampaignRequest is the multipart form intake for a new campaign.
// The résumé file arrives alongside these fields and is validated
// separately.
type CreateCampaignRequest struct {
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
	RecipientName  string `json:"recipient_name" validate:"omitempty,max=200"`
	CompanyName    string `json:"company_name" validate:"required,max=200"`
	CompanyWebsite string `json:"company_website" validate:"omitempty,url"`
	JobTitle       string `json:"job_title" validate:"required,max=200"`
	AdditionalInfo string `json:"additional_info" validate:"omitempty,max=4000"`
}

// Validate checks field constraints.
func (r *CreateCampaignRequest) Validate() error {
	return validate.Struct(r)
}

// UpsertCredentialsRequest stores or replaces a tenant's credentials. All
// fields are optional so a tenant can set just the send account or just the
// generation key.
type UpsertCredentialsRequest struct {
	SendEmail     string `json:"send_email" validate:"omitempty,email"`
	SendSecret    string `json:"send_secret" validate:"omitempty,min=1,max=1024"`
	GenerationKey string `json:"generation_key" validate:"omitempty,min=1,max=1024"`
}

// Validate checks field constraints and that the send address and secret
// arrive together.
func (r *UpsertCredentialsRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if (r.SendEmail == "") != (r.SendSecret == "") {
		return &FieldError{Field: "send_email", Message: "send_email and send_secret must be provided together"}
	}
	return nil
}

// FieldError is a single-field validation failure outside validator tags.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// CampaignResponse is the public view of a campaign.
type CampaignResponse struct {
	ID             uuid.UUID `json:"id"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	CompanyName    string    `json:"company_name"`
	CompanyWebsite string    `json:"company_website,omitempty"`
	JobTitle       string    `json:"job_title"`
	AdditionalInfo string    `json:"additional_info,omitempty"`

	Status       db.CampaignStatus `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`

	SenderInfo   *db.SenderInfo `json:"sender_info,omitempty"`
	EmailPreview string         `json:"email_preview,omitempty"`

	ThreadID      string `json:"thread_id,omitempty"`
	FollowUpCount int    `json:"follow_up_count"`

	EmailSentAt    *time.Time `json:"email_sent_at,omitempty"`
	LastFollowUpAt *time.Time `json:"last_follow_up_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCampaignResponse maps a stored campaign to its public view. Internal
// fields (document path, raw message IDs) stay server-side.
func NewCampaignResponse(c *db.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:             c.ID,
		RecipientEmail: c.RecipientEmail,
		RecipientName:  c.RecipientName,
		CompanyName:    c.CompanyName,
		CompanyWebsite: c.CompanyWebsite,
		JobTitle:       c.JobTitle,
		AdditionalInfo: c.AdditionalInfo,
		Status:         c.Status,
		ErrorMessage:   c.ErrorMessage,
		SenderInfo:     c.SenderInfo,
		EmailPreview:   c.EmailPreview,
		ThreadID:       c.ThreadID,
		FollowUpCount:  c.FollowUpCount,
		EmailSentAt:    c.EmailSentAt,
		LastFollowUpAt: c.LastFollowUpAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// CampaignListResponse is a paginated campaign listing.
type CampaignListResponse struct {
	Campaigns []CampaignResponse `json:"campaigns"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// FollowUpResponse is the public view of a follow-up.
type FollowUpResponse struct {
	ID             uuid.UUID `json:"id"`
	CampaignID     uuid.UUID `json:"campaign_id"`
	FollowUpNumber int       `json:"followup_number"`
	Subject        string    `json:"subject"`
	EmailContent   string    `json:"email_content"`
	SentAt         time.Time `json:"sent_at"`
}

// NewFollowUpResponse maps a stored follow-up to its public view.
func NewFollowUpResponse(fu *db.FollowUp) FollowUpResponse {
	return FollowUpResponse{
		ID:             fu.ID,
		CampaignID:     fu.CampaignID,
		FollowUpNumber: fu.FollowUpNumber,
		Subject:        fu.Subject,
		EmailContent:   fu.EmailContent,
		SentAt:         fu.SentAt,
	}
}
