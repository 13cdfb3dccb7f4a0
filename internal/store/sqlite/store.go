// Package sqlite provides the default embedded Store backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	url              TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	company          TEXT NOT NULL,
	location         TEXT NOT NULL DEFAULT '',
	experience       TEXT NOT NULL DEFAULT '',
	skills           TEXT NOT NULL DEFAULT '',
	salary           TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	job_type         TEXT NOT NULL DEFAULT '',
	education        TEXT NOT NULL DEFAULT '',
	eligibility      TEXT NOT NULL DEFAULT '',
	last_date        TEXT NOT NULL DEFAULT '',
	application_link TEXT NOT NULL DEFAULT '',
	posted_date      TEXT NOT NULL DEFAULT '',
	scraped_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_title      ON jobs(title);
CREATE INDEX IF NOT EXISTS idx_jobs_company    ON jobs(company);
CREATE INDEX IF NOT EXISTS idx_jobs_location   ON jobs(location);
CREATE INDEX IF NOT EXISTS idx_jobs_scraped_at ON jobs(scraped_at);
`

const upsertQuery = `
INSERT INTO jobs (
	url, title, company, location, experience, skills, salary, description,
	job_type, education, eligibility, last_date, application_link,
	posted_date, scraped_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(url) DO UPDATE SET
	title = excluded.title,
	company = excluded.company,
	location = excluded.location,
	experience = excluded.experience,
	skills = excluded.skills,
	salary = excluded.salary,
	description = excluded.description,
	job_type = excluded.job_type,
	education = excluded.education,
	eligibility = excluded.eligibility,
	last_date = excluded.last_date,
	application_link = excluded.application_link,
	posted_date = excluded.posted_date,
	scraped_at = excluded.scraped_at`

const selectColumns = `url, title, company, location, experience, skills,
	salary, description, job_type, education, eligibility, last_date,
	application_link, posted_date, scraped_at`

// completenessQuery averages the fraction of populated optional columns
// across all rows.
const completenessQuery = `
SELECT COALESCE(AVG(
	((location<>'') + (experience<>'') + (skills<>'') + (salary<>'') +
	 (description<>'') + (job_type<>'') + (education<>'') +
	 (eligibility<>'') + (last_date<>'') + (application_link<>'') +
	 (posted_date<>'')) / 11.0
), 0) FROM jobs`

// Store persists records in an embedded SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (and if necessary creates) the database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite allows a single writer; a wider pool just queues on the lock.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert writes or replaces the record for record.URL.
func (s *Store) Upsert(ctx context.Context, record jobs.Record) error {
	if err := record.Validate(); err != nil {
		return &store.PersistenceError{Op: "upsert", URL: record.URL, Err: err}
	}
	_, err := s.db.ExecContext(ctx, upsertQuery,
		record.URL, record.Title, record.Company, record.Location,
		record.Experience, record.SkillsString(), record.Salary,
		record.Description, record.JobType, record.Education,
		record.Eligibility, record.LastDate, record.ApplicationLink,
		record.PostedDate, record.ScrapedAt,
	)
	if err != nil {
		return &store.PersistenceError{Op: "upsert", URL: record.URL, Err: err}
	}
	return nil
}

// Get returns the record stored for url.
func (s *Store) Get(ctx context.Context, url string) (jobs.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM jobs WHERE url = ?", url)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return jobs.Record{}, false, nil
	}
	if err != nil {
		return jobs.Record{}, false, &store.PersistenceError{Op: "get", URL: url, Err: err}
	}
	return record, true, nil
}

// All returns a snapshot of every record.
func (s *Store) All(ctx context.Context) ([]jobs.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM jobs ORDER BY scraped_at DESC, url")
	if err != nil {
		return nil, &store.PersistenceError{Op: "all", Err: err}
	}
	defer rows.Close()

	var out []jobs.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &store.PersistenceError{Op: "all", Err: err}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.PersistenceError{Op: "all", Err: err}
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&count); err != nil {
		return 0, &store.PersistenceError{Op: "count", Err: err}
	}
	return count, nil
}

// Statistics aggregates the corpus with SQL so large corpora never get
// loaded into memory for a report.
func (s *Store) Statistics(ctx context.Context) (store.Statistics, error) {
	stats := store.Statistics{}

	count, err := s.Count(ctx)
	if err != nil {
		return store.Statistics{}, err
	}
	stats.TotalRecords = count

	stats.TopCompanies, err = s.groupCounts(ctx, "company")
	if err != nil {
		return store.Statistics{}, err
	}
	stats.TopLocations, err = s.groupCounts(ctx, "location")
	if err != nil {
		return store.Statistics{}, err
	}
	stats.ExperienceDistribution, err = s.groupCounts(ctx, "experience")
	if err != nil {
		return store.Statistics{}, err
	}

	if err := s.db.QueryRowContext(ctx, completenessQuery).Scan(&stats.Completeness); err != nil {
		return store.Statistics{}, &store.PersistenceError{Op: "statistics", Err: err}
	}
	stats.Quality = store.QualityFor(stats.Completeness)
	return stats, nil
}

// groupCounts runs a grouped count over a fixed column name. Column names
// are compile-time constants, never caller input.
func (s *Store) groupCounts(ctx context.Context, column string) ([]store.GroupCount, error) {
	query := fmt.Sprintf(`SELECT %[1]s, COUNT(*) AS n FROM jobs WHERE %[1]s <> ''
GROUP BY %[1]s ORDER BY n DESC, %[1]s LIMIT %d`, column, store.TopGroupLimit)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &store.PersistenceError{Op: "statistics", Err: err}
	}
	defer rows.Close()

	var out []store.GroupCount
	for rows.Next() {
		var g store.GroupCount
		if err := rows.Scan(&g.Name, &g.Count); err != nil {
			return nil, &store.PersistenceError{Op: "statistics", Err: err}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (jobs.Record, error) {
	var (
		r      jobs.Record
		skills string
	)
	err := row.Scan(
		&r.URL, &r.Title, &r.Company, &r.Location, &r.Experience, &skills,
		&r.Salary, &r.Description, &r.JobType, &r.Education, &r.Eligibility,
		&r.LastDate, &r.ApplicationLink, &r.PostedDate, &r.ScrapedAt,
	)
	if err != nil {
		return jobs.Record{}, err
	}
	r.Skills = jobs.SplitSkills(skills)
	return r, nil
}
