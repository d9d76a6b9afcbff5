// Package guide builds project guides and task roadmaps from model output.
//
// Model JSON cannot be trusted to satisfy structural invariants, so every
// generation runs a deterministic repair pass after parsing. The repair is
// unconditional: it runs even on well-formed output, guaranteeing the
// invariants rather than checking for them.
package guide

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// cleanJSON strips markdown fences and surrounding prose from a model
// response and fixes trailing commas, returning the best-effort JSON object.
func cleanJSON(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	// Extract the outermost object from mixed content.
	start := strings.Index(response, "{")
	if start >= 0 {
		depth := 0
		for i := start; i < len(response); i++ {
			switch response[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					response = response[start : i+1]
					i = len(response)
				}
			}
		}
	}

	return trailingCommaRe.ReplaceAllString(response, "$1")
}

// markdownOrSections is the tagged union a model returns for prose fields:
// either a markdown string or an object of named sections. Flatten renders
// the object variant as markdown with a fixed section order.
type markdownOrSections struct {
	Text     string
	Sections map[string]json.RawMessage
	IsText   bool
}

func (m *markdownOrSections) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Text = s
		m.IsText = true
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: neither string nor object", domain.ErrSchemaInvalid)
	}
	m.Sections = obj
	return nil
}

// Flatten renders the union as markdown. Only the named sections are
// rendered, in the given fixed order; unknown keys are dropped so the output
// is deterministic.
func (m markdownOrSections) Flatten(title string, knownSections []string) string {
	if m.IsText {
		return m.Text
	}
	if len(m.Sections) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for _, name := range knownSections {
		raw, ok := m.Sections[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", sectionHeader(name), rawToMarkdown(raw))
	}
	return b.String()
}

func sectionHeader(key string) string {
	// camelCase keys like "techStack" render as "Tech Stack".
	var b strings.Builder
	for i, r := range key {
		if i == 0 {
			b.WriteRune(r - ('a' - 'A'))
			continue
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rawToMarkdown renders a raw JSON value as markdown: strings verbatim,
// arrays as bullet lists, anything else as indented JSON.
func rawToMarkdown(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		var b strings.Builder
		for _, it := range items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
		return strings.TrimRight(b.String(), "\n")
	}
	pretty, err := json.MarshalIndent(json.RawMessage(raw), "", "  ")
	if err != nil {
		return string(raw)
	}
	return "```json\n" + string(pretty) + "\n```"
}
