package crawler

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The discovery contract is just "a list of URLs": WordPress sites serve
// either an XML urlset/sitemapindex or a plain HTML index page, so both
// are accepted.

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// parseSitemap extracts candidate URLs from a sitemap body. Relative
// links resolve against base. Order is preserved and duplicates dropped.
func parseSitemap(body []byte, base string) []string {
	if urls := parseXMLSitemap(body); len(urls) > 0 {
		return dedupe(resolveAll(urls, base))
	}
	return dedupe(resolveAll(extractLinks(body), base))
}

func parseXMLSitemap(body []byte) []string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return nil
	}

	var set xmlURLSet
	if err := xml.Unmarshal(trimmed, &set); err == nil && len(set.URLs) > 0 {
		out := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			out = append(out, strings.TrimSpace(u.Loc))
		}
		return out
	}

	var index xmlSitemapIndex
	if err := xml.Unmarshal(trimmed, &index); err == nil && len(index.Sitemaps) > 0 {
		out := make([]string, 0, len(index.Sitemaps))
		for _, s := range index.Sitemaps {
			out = append(out, strings.TrimSpace(s.Loc))
		}
		return out
	}
	return nil
}

// extractLinks pulls anchor hrefs out of an HTML document.
func extractLinks(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}
		links = append(links, href)
	})
	return links
}

func resolveAll(raw []string, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			continue
		}
		ref, err := url.Parse(r)
		if err != nil {
			continue
		}
		out = append(out, baseURL.ResolveReference(ref).String())
	}
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
