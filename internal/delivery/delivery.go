// Package delivery sends campaign emails over SMTP with the threading
// headers that keep follow-ups in the same conversation.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jonathan/outreach-agent/internal/credentials"
)

// Email is one outbound message, fully composed. InReplyTo and References
// are empty for an original send and set for follow-ups.
type Email struct {
	To      string
	ToName  string
	Subject string
	Body    string

	// ReplyTo is set when the résumé yielded a sender address different
	// from the send account; empty means the header is omitted.
	ReplyTo    string
	SenderName string

	MessageID  string
	InReplyTo  string
	References string

	// AttachmentPath/AttachmentName attach one file when both are set.
	AttachmentPath string
	AttachmentName string
}

// Mailer is the delivery contract the engine depends on.
type Mailer interface {
	Send(ctx context.Context, cred credentials.SendCredential, email Email) error
}

// SMTPMailer delivers via SMTP using per-call credentials, so each tenant's
// mail goes out through their own account.
type SMTPMailer struct{}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{}
}

// Send composes and delivers one email. The dial happens per send; campaign
// volume is low enough that connection reuse is not worth the bookkeeping.
func (m *SMTPMailer) Send(ctx context.Context, cred credentials.SendCredential, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(cred, email); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	if email.SenderName != "" {
		msg.SetAddressHeader("From", cred.Email, email.SenderName)
	} else {
		msg.SetHeader("From", cred.Email)
	}
	if email.ToName != "" {
		msg.SetAddressHeader("To", email.To, email.ToName)
	} else {
		msg.SetHeader("To", email.To)
	}
	msg.SetHeader("Subject", email.Subject)
	msg.SetHeader("Message-ID", email.MessageID)
	if email.ReplyTo != "" && !strings.EqualFold(email.ReplyTo, cred.Email) {
		msg.SetHeader("Reply-To", email.ReplyTo)
	}
	if email.InReplyTo != "" {
		msg.SetHeader("In-Reply-To", email.InReplyTo)
	}
	if email.References != "" {
		msg.SetHeader("References", email.References)
	}
	msg.SetBody("text/plain", email.Body)

	if email.AttachmentPath != "" && email.AttachmentName != "" {
		msg.Attach(email.AttachmentPath, gomail.Rename(email.AttachmentName))
	}

	dialer := gomail.NewDialer(cred.Host, cred.Port, cred.Email, cred.Secret)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	return nil
}

func validate(cred credentials.SendCredential, email Email) error {
	switch {
	case cred.Email == "":
		return fmt.Errorf("send credential has no address")
	case cred.Host == "" || cred.Port == 0:
		return fmt.Errorf("send credential has no SMTP endpoint")
	case email.To == "":
		return fmt.Errorf("email has no recipient")
	case email.MessageID == "":
		return fmt.Errorf("email has no message ID")
	}
	return nil
}
