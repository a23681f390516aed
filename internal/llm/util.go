// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock recovers the JSON value from a model response. Models wrap
// JSON in ```json fences or surround it with prose even when instructed not
// to; both are stripped. Input without a recoverable JSON value is returned
// trimmed.
func CleanJSONBlock(text string) string {
	text = stripCodeFence(strings.TrimSpace(text))

	objIdx := strings.IndexByte(text, '{')
	arrIdx := strings.IndexByte(text, '[')

	if objIdx >= 0 && (arrIdx < 0 || objIdx < arrIdx) {
		if extracted := extractJSONObject(text[objIdx:]); extracted != "" {
			return extracted
		}
	}
	if arrIdx >= 0 {
		if extracted := extractJSONArray(text[arrIdx:]); extracted != "" {
			return extracted
		}
	}
	return text
}

// stripCodeFence removes a surrounding markdown code fence, including an
// optional language tag on the opening line.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		tag := strings.TrimSpace(text[:idx])
		// A short bare word is a language tag, not content
		if len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// extractBalanced returns the prefix of text up to the close delimiter that
// balances the opening one, tracking string literals so quoted delimiters
// and escaped quotes do not confuse the scan.
func extractBalanced(text string, open, close byte) string {
	if len(text) == 0 || text[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
