// Package engine drives campaigns through their lifecycle: extract the
// résumé, research the company, generate the email, deliver it, and record
// the outcome. Each phase persists its status before doing the work, so a
// crash always leaves the campaign in the phase it died in.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/credentials"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/delivery"
	"github.com/jonathan/outreach-agent/internal/extraction"
	"github.com/jonathan/outreach-agent/internal/generation"
	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/research"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/threading"
)

// defaultPreviewChars bounds the stored email preview.
const defaultPreviewChars = 500

// ErrFollowUpLimit indicates a campaign already carries the maximum number
// of follow-ups.
var ErrFollowUpLimit = errors.New("campaign already has the maximum number of follow-ups")

// StateError reports an operation attempted against a campaign in the wrong
// lifecycle state.
type StateError struct {
	CampaignID uuid.UUID
	Status     db.CampaignStatus
	Op         string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s campaign %s in state %s", e.Op, e.CampaignID, e.Status)
}

// Store is the campaign persistence the engine depends on.
type Store interface {
	GetCampaign(ctx context.Context, id, ownerID uuid.UUID) (*db.Campaign, error)
	UpdateCampaign(ctx context.Context, id, ownerID uuid.UUID, upd db.CampaignUpdate) error
	AddFollowUp(ctx context.Context, fu *db.FollowUp) error
	LastFollowUp(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.FollowUp, error)
}

// DocumentStore reads uploaded résumés.
type DocumentStore interface {
	ReadBytes(path string) ([]byte, error)
	AbsolutePath(path string) (string, error)
}

// TextGenerator is the resilient generation front door.
type TextGenerator interface {
	Generate(ctx context.Context, tenantID uuid.UUID, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSON(ctx context.Context, tenantID uuid.UUID, prompt string, tier llm.ModelTier) (string, error)
}

// Researcher builds a best-effort company profile; it never fails.
type Researcher interface {
	Research(ctx context.Context, tenantID uuid.UUID, companyName, website string) *research.CompanyProfile
}

// CredentialSource resolves a tenant's send credentials.
type CredentialSource interface {
	SendCredential(ctx context.Context, ownerID uuid.UUID) (credentials.SendCredential, error)
}

// Engine runs campaign processing and follow-ups.
type Engine struct {
	store      Store
	docs       DocumentStore
	gen        TextGenerator
	researcher Researcher
	mailer     delivery.Mailer
	creds      CredentialSource

	extract      func([]byte) string
	previewChars int
	now          func() time.Time
}

// NewEngine wires an Engine. researcher may be nil; campaigns then go out
// without company personalization.
func NewEngine(store Store, docs DocumentStore, gen TextGenerator, researcher Researcher, mailer delivery.Mailer, creds CredentialSource) *Engine {
	return &Engine{
		store:        store,
		docs:         docs,
		gen:          gen,
		researcher:   researcher,
		mailer:       mailer,
		creds:        creds,
		extract:      extraction.Extract,
		previewChars: defaultPreviewChars,
		now:          time.Now,
	}
}

// Process runs one pending campaign through the full pipeline. Failures are
// persisted on the campaign and also returned; a campaign not in pending
// state is skipped without error, which makes duplicate queue deliveries
// harmless.
func (e *Engine) Process(ctx context.Context, campaignID, ownerID uuid.UUID) error {
	c, err := e.store.GetCampaign(ctx, campaignID, ownerID)
	if err != nil {
		return err
	}
	if c == nil {
		return &db.ErrNotFound{Entity: "campaign", ID: campaignID}
	}
	if c.Status != db.StatusPending {
		log.Printf("[engine] campaign %s is %s, not pending; skipping", c.ID, c.Status)
		return nil
	}

	if err := e.setStatus(ctx, c, db.StatusProcessing); err != nil {
		return err
	}
	data, err := e.docs.ReadBytes(c.DocumentPath)
	if err != nil {
		return e.fail(ctx, c, fmt.Errorf("failed to read document: %w", err))
	}
	resumeText := e.extract(data)

	if err := e.setStatus(ctx, c, db.StatusResearching); err != nil {
		return err
	}
	info := &db.SenderInfo{}
	if strings.TrimSpace(resumeText) == "" {
		// Binary uploads without a text layer extract to "". The campaign
		// still goes out; personalization degrades to the form fields.
		log.Printf("[engine] campaign %s: no extractable text in %s, sending without resume facts", c.ID, c.DocumentPath)
	} else {
		info, err = e.extractSenderInfo(ctx, c.OwnerID, resumeText)
		if err != nil {
			return e.fail(ctx, c, err)
		}
	}
	// Persist sender info as soon as it exists; the follow-up path needs it
	// even if a later phase fails.
	if err := e.store.UpdateCampaign(ctx, c.ID, c.OwnerID, db.CampaignUpdate{SenderInfo: info}); err != nil {
		return err
	}
	c.SenderInfo = info

	if err := e.setStatus(ctx, c, db.StatusSending); err != nil {
		return err
	}
	var profile *research.CompanyProfile
	if e.researcher != nil {
		profile = e.researcher.Research(ctx, c.OwnerID, c.CompanyName, c.CompanyWebsite)
	}

	subject, body, err := e.draftEmail(ctx, c, profile)
	if err != nil {
		return e.fail(ctx, c, err)
	}

	cred, err := e.creds.SendCredential(ctx, c.OwnerID)
	if err != nil {
		return e.fail(ctx, c, err)
	}
	attachPath, err := e.docs.AbsolutePath(c.DocumentPath)
	if err != nil {
		return e.fail(ctx, c, err)
	}

	messageID := threading.NewMessageID(threading.DomainFromAddress(cred.Email))
	threadID := threading.NewThreadID(c.ID)

	err = e.mailer.Send(ctx, cred, delivery.Email{
		To:             c.RecipientEmail,
		ToName:         c.RecipientName,
		Subject:        subject,
		Body:           body,
		ReplyTo:        info.Email,
		SenderName:     info.Name,
		MessageID:      messageID,
		AttachmentPath: attachPath,
		AttachmentName: attachmentName(c.DocumentPath),
	})
	if err != nil {
		// Threading fields stay unset: a failed campaign has no thread.
		return e.fail(ctx, c, fmt.Errorf("failed to deliver email: %w", err))
	}

	sent := db.StatusSent
	noError := ""
	original := "Subject: " + subject + "\n\n" + body
	preview := truncate(body, e.previewChars)
	sentAt := e.now().UTC()
	upd := db.CampaignUpdate{
		Status:        &sent,
		ErrorMessage:  &noError,
		OriginalEmail: &original,
		EmailPreview:  &preview,
		MessageID:     &messageID,
		ThreadID:      &threadID,
		EmailSentAt:   &sentAt,
	}
	if err := e.store.UpdateCampaign(ctx, c.ID, c.OwnerID, upd); err != nil {
		return fmt.Errorf("email sent but failed to record campaign %s: %w", c.ID, err)
	}

	log.Printf("[engine] campaign %s sent to %s", c.ID, c.RecipientEmail)
	return nil
}

// Retry moves a failed campaign back to pending and clears its error. Only
// the failed state is retryable.
func (e *Engine) Retry(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.Campaign, error) {
	c, err := e.store.GetCampaign(ctx, campaignID, ownerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &db.ErrNotFound{Entity: "campaign", ID: campaignID}
	}
	if c.Status != db.StatusFailed {
		return nil, &StateError{CampaignID: c.ID, Status: c.Status, Op: "retry"}
	}

	pending := db.StatusPending
	noError := ""
	if err := e.store.UpdateCampaign(ctx, c.ID, c.OwnerID, db.CampaignUpdate{
		Status:       &pending,
		ErrorMessage: &noError,
	}); err != nil {
		return nil, err
	}

	c.Status = db.StatusPending
	c.ErrorMessage = ""
	return c, nil
}

// extractSenderInfo runs the résumé through structured extraction and
// validates the result before trusting it.
func (e *Engine) extractSenderInfo(ctx context.Context, ownerID uuid.UUID, resumeText string) (*db.SenderInfo, error) {
	jsonText, err := e.gen.GenerateJSON(ctx, ownerID, generation.SenderInfoPrompt(resumeText), llm.TierLite)
	if err != nil {
		return nil, fmt.Errorf("failed to extract sender info: %w", err)
	}
	if err := schemas.ValidateSenderInfo(jsonText); err != nil {
		return nil, fmt.Errorf("sender info failed validation: %w", err)
	}

	var info db.SenderInfo
	if err := json.Unmarshal([]byte(jsonText), &info); err != nil {
		return nil, fmt.Errorf("failed to decode sender info: %w", err)
	}
	return &info, nil
}

// draftEmail generates the application email and splits off its subject.
func (e *Engine) draftEmail(ctx context.Context, c *db.Campaign, profile *research.CompanyProfile) (subject, body string, err error) {
	prompt := generation.EmailPrompt(generation.EmailInput{
		RecipientName:  c.RecipientName,
		CompanyName:    c.CompanyName,
		JobTitle:       c.JobTitle,
		AdditionalInfo: c.AdditionalInfo,
		Sender:         c.SenderInfo,
		Profile:        profile,
	})
	text, err := e.gen.Generate(ctx, c.OwnerID, prompt, llm.TierStandard)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate email: %w", err)
	}

	fallback := fmt.Sprintf("Application for %s", c.JobTitle)
	subject, body = generation.SplitSubject(text, fallback)
	if strings.TrimSpace(body) == "" {
		return "", "", errors.New("generated email is empty")
	}
	return subject, body, nil
}

func (e *Engine) setStatus(ctx context.Context, c *db.Campaign, status db.CampaignStatus) error {
	if err := e.store.UpdateCampaign(ctx, c.ID, c.OwnerID, db.CampaignUpdate{Status: &status}); err != nil {
		return fmt.Errorf("failed to move campaign %s to %s: %w", c.ID, status, err)
	}
	c.Status = status
	return nil
}

// fail persists the failed state with its cause and returns the cause.
func (e *Engine) fail(ctx context.Context, c *db.Campaign, cause error) error {
	failed := db.StatusFailed
	msg := cause.Error()
	if err := e.store.UpdateCampaign(ctx, c.ID, c.OwnerID, db.CampaignUpdate{
		Status:       &failed,
		ErrorMessage: &msg,
	}); err != nil {
		log.Printf("[engine] failed to record failure for campaign %s: %v", c.ID, err)
	}
	c.Status = db.StatusFailed
	c.ErrorMessage = msg
	log.Printf("[engine] campaign %s failed: %v", c.ID, cause)
	return cause
}

// attachmentName gives the résumé a presentable filename, keeping only the
// stored file's extension.
func attachmentName(documentPath string) string {
	return "resume" + strings.ToLower(filepath.Ext(documentPath))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
