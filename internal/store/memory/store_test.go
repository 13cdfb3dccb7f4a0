package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/store"
)

func validRecord(url, title string) jobs.Record {
	return jobs.Record{
		URL:       url,
		Title:     title,
		Company:   "WidgetCo",
		Location:  "Bangalore",
		ScrapedAt: time.Now(),
	}
}

func TestUpsertReplacesByURL(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	url := "https://job4freshers.co.in/widgetco-backend-engineer/"

	require.NoError(t, s.Upsert(ctx, validRecord(url, "Backend Engineer")))
	require.NoError(t, s.Upsert(ctx, validRecord(url, "Senior Backend Engineer")))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got, ok, err := s.Get(ctx, url)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Senior Backend Engineer", got.Title)
}

func TestUpsertRejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	s := New()
	rec := validRecord("https://job4freshers.co.in/x-y-z/", "Backend Engineer")
	rec.Company = ""

	err := s.Upsert(context.Background(), rec)
	var pe *store.PersistenceError
	require.ErrorAs(t, err, &pe)
	require.ErrorIs(t, err, jobs.ErrInvalidRecord)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestStatisticsTracksReplacedGroups(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	url := "https://job4freshers.co.in/widgetco-backend-engineer/"

	first := validRecord(url, "Backend Engineer")
	first.Company = "OldCo"
	require.NoError(t, s.Upsert(ctx, first))

	second := validRecord(url, "Backend Engineer")
	require.NoError(t, s.Upsert(ctx, second))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalRecords)
	require.Equal(t, []store.GroupCount{{Name: "WidgetCo", Count: 1}}, stats.TopCompanies)
}

func TestConcurrentUpsertsDistinctURLs(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	urls := []string{
		"https://job4freshers.co.in/job-a-111/",
		"https://job4freshers.co.in/job-b-222/",
		"https://job4freshers.co.in/job-c-333/",
		"https://job4freshers.co.in/job-d-444/",
	}
	for _, url := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			require.NoError(t, s.Upsert(ctx, validRecord(u, "Backend Engineer")))
		}(url)
	}
	wg.Wait()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, len(urls), count)
}
