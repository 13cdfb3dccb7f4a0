package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/classifier"
	"github.com/jobradar/jobradar/internal/crawler"
	"github.com/jobradar/jobradar/internal/extractor"
	"github.com/jobradar/jobradar/internal/fetcher"
	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/matcher"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/store"
	storememory "github.com/jobradar/jobradar/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type emptySiteFetcher struct{}

func (emptySiteFetcher) Fetch(_ context.Context, url string) (fetcher.Response, error) {
	if strings.Contains(url, "/sitemap/") {
		return fetcher.Response{URL: url, StatusCode: 200, Body: []byte(`<?xml version="1.0"?><urlset></urlset>`)}, nil
	}
	return fetcher.Response{}, &fetcher.Error{URL: url, Kind: fetcher.KindPermanent, StatusCode: 404, Err: errors.New("not found")}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func newTestServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	cl, err := classifier.New("https://job4freshers.co.in", nil)
	require.NoError(t, err)
	c, err := crawler.New(crawler.Config{
		BaseURL:     "https://job4freshers.co.in",
		SitemapPath: "/sitemap/",
	}, crawler.Deps{
		Fetcher:    emptySiteFetcher{},
		Classifier: cl,
		Extractor:  extractor.New(),
		Store:      st,
		Clock:      realClock{},
	})
	require.NoError(t, err)
	m := matcher.New(matcher.NewTFIDF(), nil, matcher.Config{})
	return NewServer(c, st, m, nil, 10)
}

func seedStore(t *testing.T, st store.Store) {
	t.Helper()
	records := []jobs.Record{
		{
			URL: "https://job4freshers.co.in/py-eng/", Title: "Python Engineer",
			Company: "WidgetCo", Location: "Bangalore",
			Skills: []string{"python", "sql"}, ScrapedAt: time.Now().UTC(),
		},
		{
			URL: "https://job4freshers.co.in/java-dev/", Title: "Java Developer",
			Company: "Optum", Location: "Mumbai",
			Skills: []string{"java"}, ScrapedAt: time.Now().UTC(),
		},
	}
	for _, r := range records {
		require.NoError(t, st.Upsert(context.Background(), r))
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, storememory.New())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, storememory.New())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestJobStats(t *testing.T) {
	t.Parallel()

	st := storememory.New()
	seedStore(t, st)
	srv := newTestServer(t, st)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 2, stats.TotalRecords)
	require.NotEmpty(t, stats.TopCompanies)
	require.NotEmpty(t, stats.Quality)
}

func TestSearchRanksRelevantFirst(t *testing.T) {
	t.Parallel()

	st := storememory.New()
	seedStore(t, st)
	srv := newTestServer(t, st)

	body := `{"query":"python developer","skills":["python","sql"],"location":"Bangalore"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/jobs/search", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []searchResult `json:"results"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	require.Equal(t, "Python Engineer", resp.Results[0].Title)
	require.Greater(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestSearchHonorsLimit(t *testing.T) {
	t.Parallel()

	st := storememory.New()
	seedStore(t, st)
	srv := newTestServer(t, st)

	body := `{"skills":["python"],"limit":1}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/jobs/search", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []searchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
}

func TestSearchRejectsBadRequests(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, storememory.New())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/jobs/search", strings.NewReader("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/jobs/search", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartCrawlRunsSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, storememory.New())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/crawl", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		statusRec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/v1/crawl/status", nil))
		var resp crawlStatusResponse
		if err := json.Unmarshal(statusRec.Body.Bytes(), &resp); err != nil {
			return false
		}
		return !resp.Running && resp.LastRun != nil
	}, 5*time.Second, 20*time.Millisecond)
}
