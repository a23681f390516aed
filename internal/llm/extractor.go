// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "SenderInfo")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Use an empty string or empty list for anything the text does not state.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// SenderInfoSchema returns the extraction schema for résumé text. The output
// feeds email personalization, so every field tolerates being empty; the
// résumé may be partial or badly extracted.
func SenderInfoSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "SenderInfo",
		Description: `You are an expert résumé parser. COPY TEXT VERBATIM - do not paraphrase or embellish.
Your task is to extract the candidate's contact details and professional facts from raw résumé text.
Goal: Extract structured facts used to personalize an outbound job application email.
EXCLUDE: Cover-letter prose, references, page headers/footers.`,
		Fields: []SchemaField{
			{
				Name:        "name",
				Type:        "\"string\"",
				Description: "Candidate full name exactly as written",
				Required:    false,
			},
			{
				Name:        "email",
				Type:        "\"string\"",
				Description: "Candidate email address",
				Required:    false,
			},
			{
				Name:        "phone",
				Type:        "\"string\"",
				Description: "Candidate phone number",
				Required:    false,
			},
			{
				Name:        "title",
				Type:        "\"string\"",
				Description: "Current or most recent professional title",
				Required:    false,
			},
			{
				Name:        "years_experience",
				Type:        "\"string\"",
				Description: "Total years of professional experience, if stated or clearly derivable",
				Required:    false,
			},
			{
				Name:        "top_skills",
				Type:        "[\"string\"]",
				Description: "Up to 8 strongest skills, copied verbatim",
				Required:    false,
			},
			{
				Name:        "current_employer",
				Type:        "\"string\"",
				Description: "Current or most recent employer name",
				Required:    false,
			},
			{
				Name:        "education",
				Type:        "\"string\"",
				Description: "Highest or most recent degree and institution",
				Required:    false,
			},
			{
				Name:        "location",
				Type:        "\"string\"",
				Description: "Candidate location (city, region or country)",
				Required:    false,
			},
		},
	}
}

// CompanyProfileSchema returns the extraction schema for company research
// text gathered from search results and crawled pages.
func CompanyProfileSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "CompanyProfile",
		Description: `You are a company researcher. Your task is to distill what matters about a company
from its website and public pages, for use in a personalized job application email.`,
		Fields: []SchemaField{
			{
				Name:        "summary",
				Type:        "\"string\"",
				Description: "Two or three sentences on what the company does",
				Required:    true,
			},
			{
				Name:        "culture_signals",
				Type:        "[\"string\"]",
				Description: "Values, culture or mission statements worth referencing",
				Required:    false,
			},
			{
				Name:        "recent_focus",
				Type:        "\"string\"",
				Description: "Recent products, launches or engineering focus, if mentioned",
				Required:    false,
			},
		},
	}
}
