// Package textx provides small text utilities shared across the project.
package textx

import (
	"strings"
)

// SanitizeText strips control characters from user-supplied text before it
// enters the chat and guide pipelines. Tab, newline and carriage return are
// kept so code snippets and multi-line prompts survive intact; surrounding
// whitespace is trimmed.
func SanitizeText(s string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(clean)
}
