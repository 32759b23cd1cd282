// Package outline extracts the heading structure of a Markdown document,
// used for table-of-contents display and for deriving document titles.
package outline

import (
	"regexp"
	"strings"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)

// Heading is one entry in a document outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"` // 1-based line number
}

// Extract returns every ATX heading in content, in document order.
// Headings inside fenced code blocks are skipped.
func Extract(content string) []Heading {
	var out []Heading
	inFence := false
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
			Line:  i + 1,
		})
	}
	return out
}

// Title derives a display title: the first heading if present, otherwise
// fallback.
func Title(content, fallback string) string {
	hs := Extract(content)
	if len(hs) > 0 && hs[0].Text != "" {
		return hs[0].Text
	}
	return fallback
}
