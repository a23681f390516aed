package generation

import (
	"fmt"
	"strings"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/research"
)

// SenderInfoPrompt builds the extraction prompt for raw résumé text.
func SenderInfoPrompt(resumeText string) string {
	return llm.BuildExtractionPrompt(llm.SenderInfoSchema(), resumeText)
}

// EmailInput carries everything the email prompts draw on. Profile and
// Sender may be nil or sparse; the prompts degrade accordingly.
type EmailInput struct {
	RecipientName  string
	CompanyName    string
	JobTitle       string
	AdditionalInfo string
	Sender         *db.SenderInfo
	Profile        *research.CompanyProfile
}

// EmailPrompt builds the prompt for the original application email. The
// model is instructed to put the subject on a "Subject:" first line so the
// caller can split it off.
func EmailPrompt(in EmailInput) string {
	var sb strings.Builder

	sb.WriteString("You are drafting a concise, professional job application email.\n\n")
	sb.WriteString(fmt.Sprintf("The candidate is applying for the role of %q at %s.\n", in.JobTitle, in.CompanyName))
	if in.RecipientName != "" {
		sb.WriteString(fmt.Sprintf("The email is addressed to %s.\n", in.RecipientName))
	}

	writeSenderFacts(&sb, in.Sender)
	writeCompanyFacts(&sb, in.Profile)

	if in.AdditionalInfo != "" {
		sb.WriteString("\nAdditional instructions from the candidate:\n")
		sb.WriteString(in.AdditionalInfo)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Requirements:
- First line must be exactly "Subject: <subject>" with a specific, professional subject.
- Then a blank line, then the email body.
- 120-180 words. Confident but not boastful. No placeholders like [Name].
- Mention the attached résumé once.
- If company facts are provided, reference at most one of them naturally; never force it.
- Sign off with the candidate's name`)
	if in.Sender != nil && in.Sender.Name != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", in.Sender.Name))
	}
	sb.WriteString(".\n")

	return sb.String()
}

// FollowUpPrompt builds the prompt for follow-up number n (1 or 2) in an
// existing thread.
func FollowUpPrompt(in EmailInput, originalBody string, n int) string {
	var sb strings.Builder

	tone := "politely check in on the application"
	if n >= 2 {
		tone = "send a brief final note, making clear this is the last follow-up"
	}

	sb.WriteString(fmt.Sprintf("You are drafting follow-up #%d in an existing job application email thread. The goal is to %s.\n\n", n, tone))
	sb.WriteString(fmt.Sprintf("The candidate applied for the role of %q at %s.\n", in.JobTitle, in.CompanyName))
	if in.RecipientName != "" {
		sb.WriteString(fmt.Sprintf("The thread is with %s.\n", in.RecipientName))
	}

	writeSenderFacts(&sb, in.Sender)

	if originalBody != "" {
		sb.WriteString("\nThe original email, for context (do not repeat it):\n\"\"\"\n")
		sb.WriteString(originalBody)
		sb.WriteString("\n\"\"\"\n")
	}

	sb.WriteString(`
Requirements:
- Body only, no subject line; the reply stays in the existing thread.
- 50-90 words. Courteous, low-pressure, no guilt-tripping.
- Do not restate the whole original pitch; add at most one new note of interest.
- Sign off with the candidate's name.
`)

	return sb.String()
}

func writeSenderFacts(sb *strings.Builder, s *db.SenderInfo) {
	if s == nil {
		return
	}
	var facts []string
	if s.Name != "" {
		facts = append(facts, "Name: "+s.Name)
	}
	if s.Title != "" {
		facts = append(facts, "Current title: "+s.Title)
	}
	if s.YearsExperience != "" {
		facts = append(facts, "Experience: "+s.YearsExperience)
	}
	if len(s.TopSkills) > 0 {
		facts = append(facts, "Key skills: "+strings.Join(s.TopSkills, ", "))
	}
	if s.CurrentEmployer != "" {
		facts = append(facts, "Current employer: "+s.CurrentEmployer)
	}
	if s.Education != "" {
		facts = append(facts, "Education: "+s.Education)
	}
	if len(facts) == 0 {
		return
	}
	sb.WriteString("\nCandidate facts from the résumé:\n")
	for _, f := range facts {
		sb.WriteString("- " + f + "\n")
	}
}

func writeCompanyFacts(sb *strings.Builder, p *research.CompanyProfile) {
	if p == nil || p.Empty() {
		return
	}
	sb.WriteString("\nResearched company facts:\n")
	if p.Summary != "" {
		sb.WriteString("- " + p.Summary + "\n")
	}
	for _, signal := range p.CultureSignals {
		sb.WriteString("- Values: " + signal + "\n")
	}
	if p.RecentFocus != "" {
		sb.WriteString("- Recent focus: " + p.RecentFocus + "\n")
	}
}

// SplitSubject separates a "Subject:" first line from the body. When the
// model ignored the instruction, fallback is used as the subject and the
// whole text becomes the body.
func SplitSubject(text, fallback string) (subject, body string) {
	text = strings.TrimSpace(text)
	first, rest, found := strings.Cut(text, "\n")
	if found && strings.HasPrefix(strings.ToLower(first), "subject:") {
		subject = strings.TrimSpace(first[len("subject:"):])
		body = strings.TrimSpace(rest)
		if subject != "" {
			return subject, body
		}
	}
	return fallback, text
}
