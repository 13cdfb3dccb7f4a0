// Package classifier decides whether a discovered URL points at an
// individual job posting or a navigational page. Pure functions, no I/O.
package classifier

import (
	"net/url"
	"strings"

	"github.com/jobradar/jobradar/internal/jobs"
)

// Classifier applies substring and slug-shape heuristics to candidate URLs.
// It is deliberately conservative: a missed job is cheaper than fetching and
// extracting a non-job page.
type Classifier struct {
	host           string
	nonJobPatterns []string
}

// MinSlugLen is the minimum length of a flat posting slug.
const MinSlugLen = 4

// New builds a Classifier rooted at baseURL. nonJobPatterns are matched as
// case-insensitive substrings against the full URL.
func New(baseURL string, nonJobPatterns []string) (*Classifier, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	patterns := make([]string, 0, len(nonJobPatterns))
	for _, p := range nonJobPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Classifier{
		host:           strings.ToLower(base.Hostname()),
		nonJobPatterns: patterns,
	}, nil
}

// Classify labels rawURL. Non-job patterns win over slug shape regardless of
// input ordering; URLs off the site root or with nested paths are unknown.
func (c *Classifier) Classify(rawURL string) jobs.Classification {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return jobs.ClassUnknown
	}
	for _, p := range c.nonJobPatterns {
		if strings.Contains(lower, p) {
			return jobs.ClassNonJob
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return jobs.ClassUnknown
	}
	if u.Hostname() != "" && !strings.EqualFold(u.Hostname(), c.host) {
		return jobs.ClassUnknown
	}

	// Individual postings are published as flat slugs directly under the
	// site root; navigational pages are nested or keyword-prefixed.
	path := strings.Trim(u.EscapedPath(), "/")
	if path == "" || strings.Contains(path, "/") {
		return jobs.ClassUnknown
	}
	if len(path) < MinSlugLen {
		return jobs.ClassUnknown
	}
	return jobs.ClassJob
}
