package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-agent/internal/db"
)

func validCreateRequest() CreateCampaignRequest {
	return CreateCampaignRequest{
		RecipientEmail: "grace@acme.test",
		RecipientName:  "Grace",
		CompanyName:    "Acme",
		CompanyWebsite: "https://acme.test",
		JobTitle:       "Backend Engineer",
	}
}

func TestCreateCampaignRequest_Validate(t *testing.T) {
	req := validCreateRequest()
	assert.NoError(t, req.Validate())

	req = validCreateRequest()
	req.RecipientEmail = "not-an-email"
	assert.Error(t, req.Validate())

	req = validCreateRequest()
	req.CompanyName = ""
	assert.Error(t, req.Validate())

	req = validCreateRequest()
	req.JobTitle = ""
	assert.Error(t, req.Validate())

	req = validCreateRequest()
	req.CompanyWebsite = "not a url"
	assert.Error(t, req.Validate())

	// Website and recipient name are optional
	req = validCreateRequest()
	req.CompanyWebsite = ""
	req.RecipientName = ""
	assert.NoError(t, req.Validate())
}

func TestUpsertCredentialsRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UpsertCredentialsRequest{
		SendEmail:  "me@example.com",
		SendSecret: "app-password",
	}).Validate())

	assert.NoError(t, (&UpsertCredentialsRequest{GenerationKey: "gk-123"}).Validate())

	// Send address without its secret is rejected, and vice versa
	err := (&UpsertCredentialsRequest{SendEmail: "me@example.com"}).Validate()
	require.Error(t, err)
	var fe *FieldError
	assert.ErrorAs(t, err, &fe)

	assert.Error(t, (&UpsertCredentialsRequest{SendSecret: "app-password"}).Validate())
}

func TestNewCampaignResponse_HidesInternalFields(t *testing.T) {
	c := &db.Campaign{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		RecipientEmail: "grace@acme.test",
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
		DocumentPath:   "abc.pdf",
		Status:         db.StatusSent,
		MessageID:      "<1.abc@corp.example>",
		ThreadID:       "thread-1",
	}

	resp := NewCampaignResponse(c)
	assert.Equal(t, c.ID, resp.ID)
	assert.Equal(t, db.StatusSent, resp.Status)
	assert.Equal(t, "thread-1", resp.ThreadID)
}
