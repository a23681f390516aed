package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/outreach-agent/internal/credentials"
)

func testCred() credentials.SendCredential {
	return credentials.SendCredential{
		Email:  "agent@example.com",
		Secret: "app-password",
		Host:   "smtp.example.com",
		Port:   587,
	}
}

func TestValidate(t *testing.T) {
	email := Email{
		To:        "hiring@acme.test",
		Subject:   "Application",
		Body:      "Hello",
		MessageID: "<1.abc@example.com>",
	}

	assert.NoError(t, validate(testCred(), email))

	noAddr := testCred()
	noAddr.Email = ""
	assert.Error(t, validate(noAddr, email))

	noHost := testCred()
	noHost.Host = ""
	assert.Error(t, validate(noHost, email))

	noTo := email
	noTo.To = ""
	assert.Error(t, validate(testCred(), noTo))

	noID := email
	noID.MessageID = ""
	assert.Error(t, validate(testCred(), noID))
}

func TestSend_HonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTPMailer().Send(ctx, testCred(), Email{
		To:        "hiring@acme.test",
		MessageID: "<1.abc@example.com>",
	})
	assert.ErrorIs(t, err, context.Canceled)
}
