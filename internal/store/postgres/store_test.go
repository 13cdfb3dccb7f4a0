package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/store"
)

func sampleRecord() jobs.Record {
	return jobs.Record{
		URL:       "https://job4freshers.co.in/widgetco-backend-engineer/",
		Title:     "Backend Engineer",
		Company:   "WidgetCo",
		Location:  "Bangalore",
		Skills:    []string{"python", "sql"},
		ScrapedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestUpsertExecutesConflictUpdate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			rec.URL, rec.Title, rec.Company, rec.Location, rec.Experience,
			"python, sql", rec.Salary, rec.Description, rec.JobType,
			rec.Education, rec.Eligibility, rec.LastDate,
			rec.ApplicationLink, rec.PostedDate, rec.ScrapedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Upsert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertWrapsPoolErrors(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	boom := errors.New("connection refused")
	mock.ExpectExec("INSERT INTO jobs").WillReturnError(boom)

	err = s.Upsert(context.Background(), sampleRecord())
	var pe *store.PersistenceError
	require.ErrorAs(t, err, &pe)
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsInvalidRecordWithoutQuery(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.Company = ""
	err = s.Upsert(context.Background(), rec)
	require.ErrorIs(t, err, jobs.ErrInvalidRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReturnsRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	rows := pgxmock.NewRows([]string{
		"url", "title", "company", "location", "experience", "skills",
		"salary", "description", "job_type", "education", "eligibility",
		"last_date", "application_link", "posted_date", "scraped_at",
	}).AddRow(
		rec.URL, rec.Title, rec.Company, rec.Location, rec.Experience,
		"python, sql", rec.Salary, rec.Description, rec.JobType,
		rec.Education, rec.Eligibility, rec.LastDate, rec.ApplicationLink,
		rec.PostedDate, rec.ScrapedAt,
	)
	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE url").
		WithArgs(rec.URL).
		WillReturnRows(rows)

	got, ok, err := s.Get(context.Background(), rec.URL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Title, got.Title)
	require.Equal(t, []string{"python", "sql"}, got.Skills)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatisticsAggregates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT company, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"company", "n"}).
			AddRow("WidgetCo", 2).AddRow("Optum", 1))
	mock.ExpectQuery("SELECT location, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"location", "n"}).
			AddRow("Bangalore", 2).AddRow("Mumbai", 1))
	mock.ExpectQuery("SELECT experience, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"experience", "n"}).
			AddRow("Fresher", 2).AddRow("2-4 years", 1))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(0.65))

	stats, err := s.Statistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalRecords)
	require.Equal(t, []store.GroupCount{{Name: "WidgetCo", Count: 2}, {Name: "Optum", Count: 1}}, stats.TopCompanies)
	require.Equal(t, []store.GroupCount{{Name: "Bangalore", Count: 2}, {Name: "Mumbai", Count: 1}}, stats.TopLocations)
	require.Equal(t, []store.GroupCount{{Name: "Fresher", Count: 2}, {Name: "2-4 years", Count: 1}}, stats.ExperienceDistribution)
	require.InDelta(t, 0.65, stats.Completeness, 0.0001)
	require.Equal(t, store.QualityGood, stats.Quality)
	require.NoError(t, mock.ExpectationsWereMet())
}
