package extractor

import (
	"strings"
	"unicode"
)

// boilerplate markers stripped from extracted values. Selector text often
// carries its own label prefix ("Company: WidgetCo") or trailing calls to
// action.
var (
	labelPrefixes = []string{
		"job title:", "title:", "company name:", "company:", "location:",
		"job location:", "experience:", "skills:", "skills required:",
		"salary:", "package:", "qualification:", "education:",
		"eligibility:", "last date:", "apply by:", "job type:",
		"posted on:", "posted:",
	}
	trailingMarkers = []string{
		"apply now", "click here to apply", "read more", "share this job",
	}
)

// Clean trims, collapses internal whitespace and newlines, and strips
// boilerplate markers. An all-boilerplate value cleans to empty.
func Clean(s string) string {
	s = collapseWhitespace(s)
	lower := strings.ToLower(s)
	for _, prefix := range labelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			lower = strings.ToLower(s)
			break
		}
	}
	for _, marker := range trailingMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			s = strings.TrimSpace(s[:idx])
			lower = strings.ToLower(s)
		}
	}
	if isPlaceholder(s) {
		return ""
	}
	return s
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "", "n/a", "na", "none", "-", "--", "not specified", "not disclosed":
		return true
	}
	return false
}
