// Package store defines the persistence contract for job records. Records
// are keyed on URL: an upsert replaces the prior record wholesale and
// refreshes scraped_at. Backends live in subpackages.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jobradar/jobradar/internal/jobs"
)

// TopGroupLimit caps the company and location groupings in Statistics.
const TopGroupLimit = 10

// Quality bands derived from the average completeness score.
const (
	QualityExcellent        = "excellent"
	QualityGood             = "good"
	QualityNeedsImprovement = "needs_improvement"
)

// Store persists job records keyed on URL.
type Store interface {
	// Upsert writes or replaces the record for record.URL.
	Upsert(ctx context.Context, record jobs.Record) error
	// Get returns the record for url; ok is false when absent.
	Get(ctx context.Context, url string) (jobs.Record, bool, error)
	// All returns a snapshot of every record, for matching and reporting.
	All(ctx context.Context) ([]jobs.Record, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	// Statistics aggregates counts and data-quality measures.
	Statistics(ctx context.Context) (Statistics, error)
	Close() error
}

// GroupCount is one row of a grouped count, e.g. records per company.
type GroupCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Statistics is the aggregate reporting surface over the stored corpus.
type Statistics struct {
	TotalRecords int          `json:"total_records"`
	TopCompanies []GroupCount `json:"top_companies"`
	TopLocations []GroupCount `json:"top_locations"`
	// ExperienceDistribution groups records by their raw experience text.
	ExperienceDistribution []GroupCount `json:"experience_distribution,omitempty"`
	// Completeness is the fraction of optional fields populated, averaged
	// across all records.
	Completeness float64 `json:"completeness"`
	Quality      string  `json:"quality"`
}

// QualityFor maps an average completeness score onto a quality band.
func QualityFor(completeness float64) string {
	switch {
	case completeness >= 0.8:
		return QualityExcellent
	case completeness >= 0.6:
		return QualityGood
	default:
		return QualityNeedsImprovement
	}
}

// Compute derives Statistics from a record snapshot. Backends without a
// native aggregation path delegate here.
func Compute(records []jobs.Record) Statistics {
	stats := Statistics{TotalRecords: len(records)}

	companies := make(map[string]int)
	locations := make(map[string]int)
	experiences := make(map[string]int)
	var completenessSum float64
	for _, r := range records {
		if r.Company != "" {
			companies[r.Company]++
		}
		if r.Location != "" {
			locations[r.Location]++
		}
		if r.Experience != "" {
			experiences[r.Experience]++
		}
		completenessSum += r.Completeness()
	}
	if len(records) > 0 {
		stats.Completeness = completenessSum / float64(len(records))
	}
	stats.Quality = QualityFor(stats.Completeness)
	stats.TopCompanies = TopGroups(companies)
	stats.TopLocations = TopGroups(locations)
	stats.ExperienceDistribution = TopGroups(experiences)
	return stats
}

// TopGroups orders a grouped count by count desc then name, capped at
// TopGroupLimit.
func TopGroups(counts map[string]int) []GroupCount {
	return topGroups(counts, TopGroupLimit)
}

func topGroups(counts map[string]int, limit int) []GroupCount {
	groups := make([]GroupCount, 0, len(counts))
	for name, count := range counts {
		groups = append(groups, GroupCount{Name: name, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Name < groups[j].Name
	})
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// PersistenceError is a storage-layer fault unrelated to the URL uniqueness
// key. It is counted by the crawler and surfaced, never swallowed.
type PersistenceError struct {
	Op  string
	URL string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
