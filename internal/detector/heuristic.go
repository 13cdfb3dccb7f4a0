// Package detector decides when to promote fetches to the headless renderer.
package detector

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/fetcher"
)

// Heuristic promotes a page to headless rendering when its static HTML is
// unlikely to contain the posting body. Client-rendered boards return an
// empty shell document: tiny, script-heavy, or missing the content nodes
// every server-rendered posting carries.
type Heuristic struct {
	BodyLengthThreshold int
	// ContentSelectors are CSS selectors at least one of which a rendered
	// posting page is expected to match.
	ContentSelectors []string
}

// NewHeuristic creates a detector tuned for WordPress-style job boards.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{
		BodyLengthThreshold: threshold,
		ContentSelectors:    []string{"h1", ".entry-content", "article", "table"},
	}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp fetcher.Response) bool {
	if resp.StatusCode != 200 {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	return h.missingContent(body)
}

// missingContent reports whether none of the expected content selectors
// match, which means extraction would come up empty anyway.
func (h *Heuristic) missingContent(body []byte) bool {
	if len(h.ContentSelectors) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	for _, sel := range h.ContentSelectors {
		if doc.Find(sel).Length() > 0 {
			return false
		}
	}
	return true
}

// scriptDensityHigh reports whether script tags cover at least a quarter of
// the document.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0

	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed tag; count the rest of the document.
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		end := strings.Index(lower[contentStart:], closeTag)
		var next int
		if end == -1 {
			next = total
		} else {
			next = contentStart + end + len(closeTag)
		}

		coverage += next - start
		pos = next
	}

	if coverage == 0 {
		return false
	}
	return coverage*100/total >= 25
}
