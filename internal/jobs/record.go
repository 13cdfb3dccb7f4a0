// Package jobs defines the core domain types shared across subsystems.
package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Title length bounds applied after cleaning.
const (
	MinTitleLen = 3
	MaxTitleLen = 200
)

// ErrInvalidRecord is wrapped by Record.Validate failures.
var ErrInvalidRecord = errors.New("invalid job record")

// Record is the unit of persistence. Identity is the URL: at most one
// Record exists per URL at any time, and a re-crawl replaces the prior
// record wholesale.
type Record struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location,omitempty"`
	Experience      string    `json:"experience,omitempty"`
	Skills          []string  `json:"skills,omitempty"`
	Salary          string    `json:"salary,omitempty"`
	Description     string    `json:"description,omitempty"`
	JobType         string    `json:"job_type,omitempty"`
	Education       string    `json:"education,omitempty"`
	Eligibility     string    `json:"eligibility,omitempty"`
	LastDate        string    `json:"last_date,omitempty"`
	ApplicationLink string    `json:"application_link,omitempty"`
	PostedDate      string    `json:"posted_date,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// Validate enforces the persistence contract: URL identity plus non-empty
// title and company after cleaning. Records failing validation are never
// persisted.
func (r Record) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRecord)
	}
	title := strings.TrimSpace(r.Title)
	if len(title) < MinTitleLen || len(title) > MaxTitleLen {
		return fmt.Errorf("%w: title must be %d-%d characters, got %d",
			ErrInvalidRecord, MinTitleLen, MaxTitleLen, len(title))
	}
	if strings.TrimSpace(r.Company) == "" {
		return fmt.Errorf("%w: company is required", ErrInvalidRecord)
	}
	return nil
}

// SkillsString serializes the ordered skill tokens as the delimited string
// stored in the skills column.
func (r Record) SkillsString() string {
	return strings.Join(r.Skills, ", ")
}

// SplitSkills parses a stored delimited skills string back into tokens.
func SplitSkills(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '|' || r == '/' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OptionalFieldCount is the number of optional fields considered by the
// completeness score.
const OptionalFieldCount = 11

// Completeness returns the fraction of optional fields populated in [0,1].
func (r Record) Completeness() float64 {
	filled := 0
	for _, v := range []string{
		r.Location, r.Experience, r.SkillsString(), r.Salary, r.Description,
		r.JobType, r.Education, r.Eligibility, r.LastDate, r.ApplicationLink,
		r.PostedDate,
	} {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	return float64(filled) / float64(OptionalFieldCount)
}
