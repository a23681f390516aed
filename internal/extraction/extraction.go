// Package extraction recovers plain text from uploaded résumé documents.
// Extraction never fails: unreadable input yields an empty string, which
// downstream generation tolerates with degraded personalization.
package extraction

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTextRatio is the share of printable runes a byte stream must contain
// before we trust it as text rather than an unparsed binary format.
const minTextRatio = 0.85

// Extract returns the plain text content of a document, or "" when nothing
// usable can be recovered. Binary formats without an embedded text layer
// degrade to "".
func Extract(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	// Strip a UTF-8 BOM if present
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if !utf8.Valid(data) {
		return ""
	}

	text := string(data)
	if printableRatio(text) < minTextRatio {
		return ""
	}

	return normalize(text)
}

func printableRatio(text string) float64 {
	if text == "" {
		return 0
	}
	printable := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

// normalize collapses line endings and trims trailing whitespace per line so
// extracted text diffs cleanly and prompts stay compact.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
