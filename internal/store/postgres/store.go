// Package postgres provides a Postgres-backed Store for shared deployments
// where several crawler instances feed one corpus.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/store"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists records in Postgres.
type Store struct {
	pool pool
}

var _ store.Store = (*Store)(nil)

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
	scraped_at       TIMESTAMPTZ NOT NULL
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
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	experience = EXCLUDED.experience,
	skills = EXCLUDED.skills,
	salary = EXCLUDED.salary,
	description = EXCLUDED.description,
	job_type = EXCLUDED.job_type,
	education = EXCLUDED.education,
	eligibility = EXCLUDED.eligibility,
	last_date = EXCLUDED.last_date,
	application_link = EXCLUDED.application_link,
	posted_date = EXCLUDED.posted_date,
	scraped_at = EXCLUDED.scraped_at`

const selectColumns = `url, title, company, location, experience, skills,
	salary, description, job_type, education, eligibility, last_date,
	application_link, posted_date, scraped_at`

const completenessQuery = `
SELECT COALESCE(AVG(
	((location<>'')::int + (experience<>'')::int + (skills<>'')::int +
	 (salary<>'')::int + (description<>'')::int + (job_type<>'')::int +
	 (education<>'')::int + (eligibility<>'')::int + (last_date<>'')::int +
	 (application_link<>'')::int + (posted_date<>'')::int) / 11.0
), 0) FROM jobs`

// New connects a pool, applies the schema and returns the store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := p.Exec(ctx, schema); err != nil {
		p.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Upsert writes or replaces the record for record.URL.
func (s *Store) Upsert(ctx context.Context, record jobs.Record) error {
	if err := record.Validate(); err != nil {
		return &store.PersistenceError{Op: "upsert", URL: record.URL, Err: err}
	}
	_, err := s.pool.Exec(ctx, upsertQuery,
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
	row := s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM jobs WHERE url = $1", url)
	record, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return jobs.Record{}, false, nil
	}
	if err != nil {
		return jobs.Record{}, false, &store.PersistenceError{Op: "get", URL: url, Err: err}
	}
	return record, true, nil
}

// All returns a snapshot of every record.
func (s *Store) All(ctx context.Context) ([]jobs.Record, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+selectColumns+" FROM jobs ORDER BY scraped_at DESC, url")
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
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs").Scan(&count); err != nil {
		return 0, &store.PersistenceError{Op: "count", Err: err}
	}
	return count, nil
}

// Statistics aggregates the corpus in SQL.
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

	if err := s.pool.QueryRow(ctx, completenessQuery).Scan(&stats.Completeness); err != nil {
		return store.Statistics{}, &store.PersistenceError{Op: "statistics", Err: err}
	}
	stats.Quality = store.QualityFor(stats.Completeness)
	return stats, nil
}

func (s *Store) groupCounts(ctx context.Context, column string) ([]store.GroupCount, error) {
	query := fmt.Sprintf(`SELECT %[1]s, COUNT(*) AS n FROM jobs WHERE %[1]s <> ''
GROUP BY %[1]s ORDER BY n DESC, %[1]s LIMIT %d`, column, store.TopGroupLimit)
	rows, err := s.pool.Query(ctx, query)
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

// Close releases the pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (jobs.Record, error) {
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
