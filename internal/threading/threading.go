// Package threading provides pure helpers for building RFC 5322 conversation
// threads: Message-ID generation, stable thread identifiers, and the
// In-Reply-To/References chains that make follow-ups render as one
// conversation in recipients' mail clients.
package threading

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FallbackDomain is used for Message-ID generation when the sender's email
// address is unknown.
const FallbackDomain = "mail.outreach-agent.local"

// messageIDPattern matches the angle-bracket form <local@domain> with no
// nested brackets and exactly one @ separator.
var messageIDPattern = regexp.MustCompile(`^<[^<>@\s]+@[^<>@\s]+>$`)

// NewMessageID returns a fresh Message-ID in angle-bracket form,
// <timestamp.random@domain>. An empty domain falls back to FallbackDomain.
func NewMessageID(domain string) string {
	if domain == "" {
		domain = FallbackDomain
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; a UUID keeps
		// the ID unique without aborting a send.
		return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), uuid.NewString(), domain)
	}

	return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), hex.EncodeToString(buf), domain)
}

// DomainFromAddress extracts the domain part of an email address for use in
// Message-ID generation. Returns FallbackDomain when the address has no
// usable domain.
func DomainFromAddress(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return FallbackDomain
	}
	domain := strings.TrimSpace(email[at+1:])
	if domain == "" {
		return FallbackDomain
	}
	return domain
}

// NewThreadID returns a deterministic conversation key for a campaign. It is
// stable for the campaign's lifetime so every message in the campaign maps to
// the same thread.
func NewThreadID(campaignID uuid.UUID) string {
	return fmt.Sprintf("thread-%s", campaignID)
}

// BuildReferences appends msgID to a space-separated References chain. An
// empty prior chain yields just msgID, per RFC 5322 §3.6.4.
func BuildReferences(priorReferences, msgID string) string {
	priorReferences = strings.TrimSpace(priorReferences)
	if priorReferences == "" {
		return msgID
	}
	return priorReferences + " " + msgID
}

// IsValidMessageID reports whether s is a well-formed <local@domain>
// Message-ID. Used defensively before trusting externally-sourced headers.
func IsValidMessageID(s string) bool {
	return messageIDPattern.MatchString(s)
}

// FollowUpSubject derives a follow-up subject from the original. Any leading
// Re: prefixes (case-insensitive, possibly stacked) are stripped first, so
// repeated application never produces "Re: Re:" chains. With rePrefix set the
// result is "Re: <subject>"; otherwise "<subject> - Follow-up #n".
func FollowUpSubject(original string, n int, rePrefix bool) string {
	subject := strings.TrimSpace(original)
	for {
		lower := strings.ToLower(subject)
		if !strings.HasPrefix(lower, "re:") {
			break
		}
		subject = strings.TrimSpace(subject[3:])
	}

	if rePrefix {
		return "Re: " + subject
	}
	return fmt.Sprintf("%s - Follow-up #%d", subject, n)
}
