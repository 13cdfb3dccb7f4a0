package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(url string) jobs.Record {
	return jobs.Record{
		URL:       url,
		Title:     "Backend Engineer",
		Company:   "WidgetCo",
		Location:  "Bangalore",
		Skills:    []string{"python", "sql"},
		ScrapedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord("https://job4freshers.co.in/widgetco-backend-engineer/")

	require.NoError(t, s.Upsert(ctx, rec))

	got, ok, err := s.Get(ctx, rec.URL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Title, got.Title)
	require.Equal(t, rec.Company, got.Company)
	require.Equal(t, []string{"python", "sql"}, got.Skills)
}

func TestUpsertReplacesWholesale(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	url := "https://job4freshers.co.in/widgetco-backend-engineer/"

	first := sampleRecord(url)
	first.Salary = "10 LPA"
	require.NoError(t, s.Upsert(ctx, first))

	second := sampleRecord(url)
	second.Title = "Senior Backend Engineer"
	// No salary on the re-crawl; the old value must not survive.
	require.NoError(t, s.Upsert(ctx, second))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got, ok, err := s.Get(ctx, url)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Senior Backend Engineer", got.Title)
	require.Empty(t, got.Salary)
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	_, ok, err := s.Get(context.Background(), "https://job4freshers.co.in/nope/")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpsertRejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	rec := sampleRecord("https://job4freshers.co.in/x-y-z/")
	rec.Title = ""

	err := s.Upsert(context.Background(), rec)
	var pe *store.PersistenceError
	require.ErrorAs(t, err, &pe)
}

func TestStatistics(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	a := sampleRecord("https://job4freshers.co.in/widgetco-backend-engineer/")
	a.Experience = "Fresher"
	b := sampleRecord("https://job4freshers.co.in/widgetco-data-analyst/")
	b.Experience = "Fresher"
	c := sampleRecord("https://job4freshers.co.in/optum-senior-data-analyst/")
	c.Company = "Optum"
	c.Location = "Mumbai"
	c.Experience = "2-4 years"
	for _, rec := range []jobs.Record{a, b, c} {
		require.NoError(t, s.Upsert(ctx, rec))
	}

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalRecords)
	require.Equal(t, []store.GroupCount{{Name: "WidgetCo", Count: 2}, {Name: "Optum", Count: 1}}, stats.TopCompanies)
	require.Equal(t, []store.GroupCount{{Name: "Bangalore", Count: 2}, {Name: "Mumbai", Count: 1}}, stats.TopLocations)
	require.Equal(t, []store.GroupCount{{Name: "Fresher", Count: 2}, {Name: "2-4 years", Count: 1}}, stats.ExperienceDistribution)
	// Three optional fields (location, experience, skills) of eleven
	// populated per record.
	require.InDelta(t, 3.0/11.0, stats.Completeness, 0.001)
	require.Equal(t, store.QualityNeedsImprovement, stats.Quality)
}

func TestAllOrdersByRecency(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	old := sampleRecord("https://job4freshers.co.in/older-posting-1/")
	old.ScrapedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	fresh := sampleRecord("https://job4freshers.co.in/fresh-posting-2/")
	require.NoError(t, s.Upsert(ctx, old))
	require.NoError(t, s.Upsert(ctx, fresh))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, fresh.URL, all[0].URL)
}
