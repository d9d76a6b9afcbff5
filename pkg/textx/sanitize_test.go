package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"control bytes stripped", "he\x00llo\nwo\x7frld\t!", "hello\nworld\t!"},
		{"multiline code survives", "func main() {\n\tprintln(\"hi\")\n}", "func main() {\n\tprintln(\"hi\")\n}"},
		{"surrounding whitespace trimmed", "  explain goroutines  ", "explain goroutines"},
		{"escape sequences removed", "title\x1b[31mred\x1b[0m", "title[31mred[0m"},
		{"clean text unchanged", "Build a todo app", "Build a todo app"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SanitizeText(tc.in))
		})
	}
}
