package content

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Cleaner turns feed-provided HTML fragments into plain text
type Cleaner struct {
	policy *bluemonday.Policy
}

// NewCleaner makes a cleaner stripping all markup
func NewCleaner() *Cleaner {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return &Cleaner{policy: p}
}

// PlainText decodes entities, removes all tags and collapses whitespace.
// Entities are decoded first, so escaped markup like "&lt;b&gt;" is stripped too.
func (c *Cleaner) PlainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = c.policy.Sanitize(s)
	// sanitizer escapes text back, undo it for plain text output
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most maxRunes characters without splitting a multi-byte rune.
// Non-positive maxRunes means no limit.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	count := 0
	for i := range s {
		if count == maxRunes {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}
