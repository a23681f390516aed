package threading

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewMessageID_Form(t *testing.T) {
	id := NewMessageID("example.com")

	if !IsValidMessageID(id) {
		t.Errorf("Expected generated ID to be valid, got %q", id)
	}
	if !strings.HasSuffix(id, "@example.com>") {
		t.Errorf("Expected ID to end with @example.com>, got %q", id)
	}
}

func TestNewMessageID_EmptyDomainUsesFallback(t *testing.T) {
	id := NewMessageID("")

	if !strings.Contains(id, "@"+FallbackDomain+">") {
		t.Errorf("Expected fallback domain in %q", id)
	}
	if !IsValidMessageID(id) {
		t.Errorf("Expected fallback ID to be valid, got %q", id)
	}
}

func TestNewMessageID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewMessageID("example.com")
		if seen[id] {
			t.Fatalf("Duplicate message ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestDomainFromAddress(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@acme.test", "acme.test"},
		{"first.last@mail.example.org", "mail.example.org"},
		{"", FallbackDomain},
		{"no-at-sign", FallbackDomain},
		{"dangling@", FallbackDomain},
	}

	for _, tt := range tests {
		if got := DomainFromAddress(tt.email); got != tt.want {
			t.Errorf("DomainFromAddress(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestNewThreadID_Deterministic(t *testing.T) {
	campaignID := uuid.New()

	first := NewThreadID(campaignID)
	second := NewThreadID(campaignID)

	if first != second {
		t.Errorf("Expected stable thread ID, got %q then %q", first, second)
	}
	if first == NewThreadID(uuid.New()) {
		t.Error("Expected distinct campaigns to have distinct thread IDs")
	}
}

func TestBuildReferences(t *testing.T) {
	tests := []struct {
		name  string
		prior string
		msgID string
		want  string
	}{
		{"empty chain", "", "<a@x>", "<a@x>"},
		{"whitespace chain", "   ", "<a@x>", "<a@x>"},
		{"one prior", "<a@x>", "<b@x>", "<a@x> <b@x>"},
		{"two prior", "<a@x> <b@x>", "<c@x>", "<a@x> <b@x> <c@x>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildReferences(tt.prior, tt.msgID); got != tt.want {
				t.Errorf("BuildReferences(%q, %q) = %q, want %q", tt.prior, tt.msgID, got, tt.want)
			}
		})
	}
}

func TestIsValidMessageID(t *testing.T) {
	valid := []string{
		"<123.abc@example.com>",
		"<1700000000.deadbeef@mail.acme.test>",
	}
	invalid := []string{
		"",
		"no-brackets@example.com",
		"<missing-domain>",
		"<two@@example.com>",
		"<nested<id>@example.com>",
		"<spaces in@example.com>",
		"<trailing@example.com> ",
	}

	for _, s := range valid {
		if !IsValidMessageID(s) {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	for _, s := range invalid {
		if IsValidMessageID(s) {
			t.Errorf("Expected %q to be invalid", s)
		}
	}
}

func TestFollowUpSubject_RePrefix(t *testing.T) {
	got := FollowUpSubject("Application for Backend Engineer", 1, true)
	if got != "Re: Application for Backend Engineer" {
		t.Errorf("Unexpected subject: %q", got)
	}
}

func TestFollowUpSubject_NumberSuffix(t *testing.T) {
	got := FollowUpSubject("Application for Backend Engineer", 2, false)
	if got != "Application for Backend Engineer - Follow-up #2" {
		t.Errorf("Unexpected subject: %q", got)
	}
}

func TestFollowUpSubject_NeverStacksRe(t *testing.T) {
	s := "Application for Backend Engineer"
	for n := 1; n <= 3; n++ {
		s = FollowUpSubject(s, n, true)
	}

	if strings.Count(s, "Re:") != 1 {
		t.Errorf("Expected exactly one Re: prefix, got %q", s)
	}
	if s != "Re: Application for Backend Engineer" {
		t.Errorf("Unexpected subject after repeated application: %q", s)
	}
}

func TestFollowUpSubject_StripsExistingReChains(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Re: Hello", "Re: Hello"},
		{"re: Hello", "Re: Hello"},
		{"RE: re: Re: Hello", "Re: Hello"},
	}

	for _, tt := range tests {
		if got := FollowUpSubject(tt.in, 1, true); got != tt.want {
			t.Errorf("FollowUpSubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
