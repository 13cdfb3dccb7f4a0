// Package memory provides an in-memory Store used by tests and the
// single-shot CLI mode.
package memory

import (
	"context"
	"sync"

	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/store"
)

// Store keeps records in a URL-keyed map guarded by a RWMutex. Group
// counts are maintained incrementally so Statistics does not rescan the
// corpus on every call.
type Store struct {
	mu        sync.RWMutex
	records   map[string]jobs.Record
	companies map[string]int
	locations map[string]int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records:   make(map[string]jobs.Record),
		companies: make(map[string]int),
		locations: make(map[string]int),
	}
}

var _ store.Store = (*Store)(nil)

// Upsert writes or replaces the record for record.URL.
func (s *Store) Upsert(_ context.Context, record jobs.Record) error {
	if err := record.Validate(); err != nil {
		return &store.PersistenceError{Op: "upsert", URL: record.URL, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[record.URL]; ok {
		s.decrement(prev)
	}
	s.records[record.URL] = record
	s.increment(record)
	return nil
}

func (s *Store) increment(r jobs.Record) {
	if r.Company != "" {
		s.companies[r.Company]++
	}
	if r.Location != "" {
		s.locations[r.Location]++
	}
}

func (s *Store) decrement(r jobs.Record) {
	if r.Company != "" {
		if s.companies[r.Company]--; s.companies[r.Company] <= 0 {
			delete(s.companies, r.Company)
		}
	}
	if r.Location != "" {
		if s.locations[r.Location]--; s.locations[r.Location] <= 0 {
			delete(s.locations, r.Location)
		}
	}
}

// Get returns the record stored for url.
func (s *Store) Get(_ context.Context, url string) (jobs.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[url]
	return r, ok, nil
}

// All returns a snapshot of every record.
func (s *Store) All(_ context.Context) ([]jobs.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]jobs.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Statistics aggregates the corpus, reading the group counts maintained
// by Upsert.
func (s *Store) Statistics(_ context.Context) (store.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := store.Statistics{TotalRecords: len(s.records)}
	experiences := make(map[string]int)
	var completenessSum float64
	for _, r := range s.records {
		if r.Experience != "" {
			experiences[r.Experience]++
		}
		completenessSum += r.Completeness()
	}
	if len(s.records) > 0 {
		stats.Completeness = completenessSum / float64(len(s.records))
	}
	stats.Quality = store.QualityFor(stats.Completeness)
	stats.TopCompanies = store.TopGroups(s.companies)
	stats.TopLocations = store.TopGroups(s.locations)
	stats.ExperienceDistribution = store.TopGroups(experiences)
	return stats, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
