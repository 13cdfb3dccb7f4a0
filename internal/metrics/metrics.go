// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal     *prometheus.CounterVec
	fetchDurationSeconds  *prometheus.HistogramVec
	fetchRetriesTotal     prometheus.Counter
	candidatesTotal       *prometheus.CounterVec
	recordsPersistedTotal prometheus.Counter
	recordsSkippedTotal   *prometheus.CounterVec
	crawlSessionsTotal    *prometheus.CounterVec
	activeWorkers         prometheus.Gauge
	matchRequestsTotal    prometheus.Counter
	matchDurationSeconds  prometheus.Histogram
	httpRequestsTotal     *prometheus.CounterVec
	httpDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_pages_fetched_total",
				Help: "Pages fetched, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobradar_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"site"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobradar_fetch_retries_total",
				Help: "Fetch attempts beyond the first, across all pages.",
			},
		)

		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_candidates_total",
				Help: "Discovered candidate URLs, labeled by classification.",
			},
			[]string{"class"},
		)

		recordsPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobradar_records_persisted_total",
				Help: "Job records written to the store.",
			},
		)

		recordsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_records_skipped_total",
				Help: "Candidate pages skipped, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlSessionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_crawl_sessions_total",
				Help: "Completed crawl sessions, labeled by discovery mode.",
			},
			[]string{"mode"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobradar_active_workers",
				Help: "Workers currently processing a candidate URL.",
			},
		)

		matchRequestsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobradar_match_requests_total",
				Help: "Ranking requests served.",
			},
		)

		matchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jobradar_match_duration_seconds",
				Help:    "Histogram of corpus ranking latencies.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of API request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page fetch.
func ObserveFetch(site, outcome string, duration time.Duration) {
	sanitized := SanitizeSite(site)
	pagesFetchedTotal.WithLabelValues(sanitized, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(sanitized).Observe(duration.Seconds())
}

// ObserveCandidate counts one classified candidate URL.
func ObserveCandidate(class string) {
	candidatesTotal.WithLabelValues(class).Inc()
}

// ObservePersisted counts one stored record.
func ObservePersisted() {
	recordsPersistedTotal.Inc()
}

// ObserveSkipped counts one skipped candidate with its reason.
func ObserveSkipped(reason string) {
	recordsSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveSession counts one completed crawl session by discovery mode.
func ObserveSession(mode string) {
	crawlSessionsTotal.WithLabelValues(mode).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveFetchRetries counts fetch attempts beyond the first.
func ObserveFetchRetries(n int) {
	if n > 0 {
		fetchRetriesTotal.Add(float64(n))
	}
}

// ObserveMatchRequest counts one ranking request and its latency.
func ObserveMatchRequest(duration time.Duration) {
	matchRequestsTotal.Inc()
	matchDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest records one API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
