package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// A Strategy attempts to pull one field's raw text out of a parsed page.
// Strategies are pure; the chain orchestrator applies cleaning and
// validation on top.
type Strategy func(doc *goquery.Document) string

// selectorText returns the text of the first element matching any of the
// given selectors.
func selectorText(selectors ...string) Strategy {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			if node := doc.Find(sel).First(); node.Length() > 0 {
				return node.Text()
			}
		}
		return ""
	}
}

// selectorAttr returns an attribute of the first element matching any of
// the given selectors.
func selectorAttr(attr string, selectors ...string) Strategy {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr(attr); ok {
				return v
			}
		}
		return ""
	}
}

// labeledValue scans label/value structures common on posting pages:
// table rows, definition lists, and "Label: value" list items or
// paragraphs. Labels match case-insensitively.
func labeledValue(labels ...string) Strategy {
	lowered := make([]string, len(labels))
	for i, l := range labels {
		lowered[i] = strings.ToLower(l)
	}
	return func(doc *goquery.Document) string {
		var found string
		doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("th, td")
			if cells.Length() < 2 {
				return true
			}
			if matchesLabel(cells.First().Text(), lowered) {
				found = cells.Eq(1).Text()
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
		doc.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
			if matchesLabel(dt.Text(), lowered) {
				found = dt.NextFiltered("dd").Text()
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
		doc.Find("li, p").EachWithBreak(func(_ int, node *goquery.Selection) bool {
			text := node.Text()
			colon := strings.Index(text, ":")
			if colon <= 0 {
				return true
			}
			if matchesLabel(text[:colon], lowered) {
				found = text[colon+1:]
				return false
			}
			return true
		})
		return found
	}
}

func matchesLabel(text string, labels []string) bool {
	text = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ":")))
	for _, l := range labels {
		if text == l || strings.HasPrefix(text, l) {
			return true
		}
	}
	return false
}

// linkHref returns the href of the first anchor matching any selector.
func linkHref(selectors ...string) Strategy {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			if href, ok := doc.Find(sel).First().Attr("href"); ok {
				return href
			}
		}
		return ""
	}
}

// anchorByText returns the href of the first anchor whose text contains any
// of the given phrases, case-insensitively.
func anchorByText(phrases ...string) Strategy {
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return func(doc *goquery.Document) string {
		var found string
		doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			text := strings.ToLower(a.Text())
			for _, p := range lowered {
				if strings.Contains(text, p) {
					found, _ = a.Attr("href")
					return false
				}
			}
			return true
		})
		return found
	}
}
