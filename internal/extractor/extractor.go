// Package extractor pulls structured job fields out of heterogeneous HTML.
// Each field carries an ordered chain of extraction strategies; the first
// strategy yielding non-empty, validated text after cleaning wins. Site
// selectors rot, so chains end in generic structural fallbacks.
package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/jobs"
)

// Field names accepted by Extract.
const (
	FieldTitle           = "title"
	FieldCompany         = "company"
	FieldLocation        = "location"
	FieldExperience      = "experience"
	FieldSkills          = "skills"
	FieldSalary          = "salary"
	FieldDescription     = "description"
	FieldJobType         = "job_type"
	FieldEducation       = "education"
	FieldEligibility     = "eligibility"
	FieldLastDate        = "last_date"
	FieldApplicationLink = "application_link"
	FieldPostedDate      = "posted_date"
)

// validator rejects a cleaned value, sending the chain to its next strategy.
type validator func(string) bool

// Extractor holds the per-field strategy chains. Zero value is unusable;
// construct with New.
type Extractor struct {
	chains     map[string][]Strategy
	validators map[string]validator
}

// New builds an Extractor with the default chains.
func New() *Extractor {
	return &Extractor{
		chains: map[string][]Strategy{
			FieldTitle: {
				selectorText("h1.entry-title", "h1.job-title", ".post-title h1"),
				selectorAttr("content", `meta[property="og:title"]`),
				selectorText("h1", "h2.entry-title", "title"),
			},
			FieldCompany: {
				labeledValue("company", "company name", "organization", "employer"),
				selectorText(".company-name", ".company", ".employer"),
			},
			FieldLocation: {
				labeledValue("location", "job location", "city", "place of posting"),
				selectorText(".job-location", ".location"),
			},
			FieldExperience: {
				labeledValue("experience", "exp", "experience required", "work experience"),
				selectorText(".experience", ".job-experience"),
			},
			FieldSkills: {
				labeledValue("skills", "skills required", "key skills", "technologies"),
				selectorText(".skills", ".job-skills", ".tags"),
			},
			FieldSalary: {
				labeledValue("salary", "package", "ctc", "pay", "compensation"),
				selectorText(".salary", ".job-salary"),
			},
			FieldDescription: {
				selectorText(".job-description", ".entry-content", "article .content"),
				selectorAttr("content", `meta[name="description"]`, `meta[property="og:description"]`),
			},
			FieldJobType: {
				labeledValue("job type", "employment type", "position type"),
				selectorText(".job-type"),
			},
			FieldEducation: {
				labeledValue("education", "qualification", "educational qualification", "degree"),
				selectorText(".education", ".qualification"),
			},
			FieldEligibility: {
				labeledValue("eligibility", "eligibility criteria", "who can apply"),
				selectorText(".eligibility"),
			},
			FieldLastDate: {
				labeledValue("last date", "apply by", "application deadline", "last date to apply"),
				selectorText(".last-date", ".deadline"),
			},
			FieldApplicationLink: {
				linkHref("a.apply-link", "a.apply-button", ".apply a[href]"),
				anchorByText("apply now", "apply here", "click here to apply", "apply online"),
			},
			FieldPostedDate: {
				selectorAttr("datetime", "time.entry-date", "time[datetime]"),
				labeledValue("posted on", "posted", "date posted"),
				selectorText(".posted-date", ".entry-date"),
			},
		},
		validators: map[string]validator{
			FieldTitle: func(s string) bool {
				return len(s) >= jobs.MinTitleLen && len(s) <= jobs.MaxTitleLen
			},
			FieldCompany: func(s string) bool { return s != "" },
		},
	}
}

// Parse builds a goquery document from raw page bytes.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// Extract runs fieldName's chain against doc and returns the first cleaned,
// validated value, or "" when every strategy comes up empty. Unknown fields
// yield "".
func (e *Extractor) Extract(doc *goquery.Document, fieldName string) string {
	chain, ok := e.chains[fieldName]
	if !ok {
		return ""
	}
	validate := e.validators[fieldName]
	for _, strategy := range chain {
		value := Clean(strategy(doc))
		if value == "" {
			continue
		}
		if validate != nil && !validate(value) {
			continue
		}
		return value
	}
	return ""
}

// Record assembles a full jobs.Record from doc. The caller owns validation;
// a record with a missing required field is returned as-is so the crawler
// can count and log it.
func (e *Extractor) Record(doc *goquery.Document, pageURL string, scrapedAt time.Time) jobs.Record {
	rec := jobs.Record{
		URL:             pageURL,
		Title:           e.Extract(doc, FieldTitle),
		Company:         e.Extract(doc, FieldCompany),
		Location:        e.Extract(doc, FieldLocation),
		Experience:      e.Extract(doc, FieldExperience),
		Salary:          e.Extract(doc, FieldSalary),
		Description:     e.Extract(doc, FieldDescription),
		JobType:         e.Extract(doc, FieldJobType),
		Education:       e.Extract(doc, FieldEducation),
		Eligibility:     e.Extract(doc, FieldEligibility),
		LastDate:        e.Extract(doc, FieldLastDate),
		ApplicationLink: e.Extract(doc, FieldApplicationLink),
		PostedDate:      e.Extract(doc, FieldPostedDate),
		ScrapedAt:       scrapedAt.UTC(),
	}
	if skills := e.Extract(doc, FieldSkills); skills != "" {
		rec.Skills = jobs.SplitSkills(skills)
	}
	if rec.Description != "" {
		rec.Description = truncate(rec.Description, maxDescriptionLen)
	}
	return rec
}

const maxDescriptionLen = 4000

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
