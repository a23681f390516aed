package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/delivery"
	"github.com/jonathan/outreach-agent/internal/generation"
	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/threading"
)

// maxFollowUps caps how many follow-ups a campaign ever receives.
const maxFollowUps = 2

// SendFollowUp generates and delivers the next follow-up in a campaign's
// thread. A delivery or generation failure leaves the campaign untouched;
// follow-up failures are never terminal and the next scheduler pass simply
// tries again.
func (e *Engine) SendFollowUp(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.FollowUp, error) {
	c, err := e.store.GetCampaign(ctx, campaignID, ownerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &db.ErrNotFound{Entity: "campaign", ID: campaignID}
	}
	if c.Status != db.StatusSent {
		return nil, &StateError{CampaignID: c.ID, Status: c.Status, Op: "follow up on"}
	}
	if c.FollowUpCount >= maxFollowUps {
		return nil, ErrFollowUpLimit
	}
	if !c.Threaded() {
		return nil, &StateError{CampaignID: c.ID, Status: c.Status, Op: "follow up on unthreaded"}
	}

	n := c.FollowUpCount + 1

	// Thread off the most recent message: the last follow-up if one exists,
	// otherwise the original email.
	inReplyTo := c.MessageID
	references := threading.BuildReferences(c.EmailReferences, c.MessageID)
	if last, err := e.store.LastFollowUp(ctx, c.ID, c.OwnerID); err != nil {
		return nil, err
	} else if last != nil {
		if !threading.IsValidMessageID(last.MessageID) {
			return nil, fmt.Errorf("follow-up %d of campaign %s has malformed message ID %q", last.FollowUpNumber, c.ID, last.MessageID)
		}
		inReplyTo = last.MessageID
		references = threading.BuildReferences(last.EmailReferences, last.MessageID)
	}

	originalSubject, originalBody := generation.SplitSubject(c.OriginalEmail, fmt.Sprintf("Application for %s", c.JobTitle))
	body, err := e.draftFollowUp(ctx, c, originalBody, n)
	if err != nil {
		return nil, err
	}
	subject := threading.FollowUpSubject(originalSubject, n, true)

	cred, err := e.creds.SendCredential(ctx, c.OwnerID)
	if err != nil {
		return nil, err
	}
	messageID := threading.NewMessageID(threading.DomainFromAddress(cred.Email))

	var replyTo, senderName string
	if c.SenderInfo != nil {
		replyTo = c.SenderInfo.Email
		senderName = c.SenderInfo.Name
	}

	err = e.mailer.Send(ctx, cred, delivery.Email{
		To:         c.RecipientEmail,
		ToName:     c.RecipientName,
		Subject:    subject,
		Body:       body,
		ReplyTo:    replyTo,
		SenderName: senderName,
		MessageID:  messageID,
		InReplyTo:  inReplyTo,
		References: references,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deliver follow-up %d for campaign %s: %w", n, c.ID, err)
	}

	fu := &db.FollowUp{
		CampaignID:      c.ID,
		OwnerID:         c.OwnerID,
		FollowUpNumber:  n,
		Subject:         subject,
		EmailContent:    body,
		MessageID:       messageID,
		InReplyTo:       inReplyTo,
		EmailReferences: references,
		SentAt:          e.now().UTC(),
	}
	if err := e.store.AddFollowUp(ctx, fu); err != nil {
		return nil, fmt.Errorf("follow-up sent but failed to record it: %w", err)
	}

	log.Printf("[engine] follow-up %d sent for campaign %s", n, c.ID)
	return fu, nil
}

func (e *Engine) draftFollowUp(ctx context.Context, c *db.Campaign, originalBody string, n int) (string, error) {
	prompt := generation.FollowUpPrompt(generation.EmailInput{
		RecipientName: c.RecipientName,
		CompanyName:   c.CompanyName,
		JobTitle:      c.JobTitle,
		Sender:        c.SenderInfo,
	}, originalBody, n)

	body, err := e.gen.Generate(ctx, c.OwnerID, prompt, llm.TierLite)
	if err != nil {
		return "", fmt.Errorf("failed to generate follow-up: %w", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", errors.New("generated follow-up is empty")
	}
	return body, nil
}
