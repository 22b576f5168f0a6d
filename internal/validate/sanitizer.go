package validate

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips dangerous markup from article content before persistence.
// The allow-list is fixed: block and inline formatting tags plus links and
// images; no script, style, iframe, or event-handler content survives.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the sanitizer with the content allow-list.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "strong", "em", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6", "blockquote",
	)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowStandardURLs()

	return &Sanitizer{policy: p}
}

// SanitizeHTML returns the input with everything outside the allow-list removed.
func (s *Sanitizer) SanitizeHTML(content string) string {
	if content == "" {
		return ""
	}
	return s.policy.Sanitize(content)
}
