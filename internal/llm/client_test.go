package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationOptionsDifferPerPath(t *testing.T) {
	email := emailOptions()
	structured := structuredOptions()

	assert.False(t, email.jsonOutput, "email drafting must stay free-form")
	assert.True(t, structured.jsonOutput)
	assert.Less(t, structured.temperature, email.temperature)
}

func TestJoinTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Dear "), genai.Text("Grace")}},
		}},
	}

	got, err := joinTextParts(resp)
	require.NoError(t, err)
	assert.Equal(t, "Dear Grace", got)
}

func TestJoinTextParts_NoCandidates(t *testing.T) {
	_, err := joinTextParts(&genai.GenerateContentResponse{})
	require.Error(t, err)

	_, err = joinTextParts(nil)
	require.Error(t, err)
}
