// Package api exposes the HTTP interface for the job pipeline: crawl
// triggering, corpus statistics and ranked search.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/crawler"
	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/matcher"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/store"
)

// Server wires HTTP handlers to the crawler, store and matcher.
type Server struct {
	router  chi.Router
	crawler *crawler.Crawler
	store   store.Store
	matcher *matcher.Matcher
	logger  *zap.Logger
	topN    int

	mu         sync.Mutex
	inFlight   bool
	lastReport *jobs.CrawlReport
}

// NewServer constructs a Server with middleware and routes.
func NewServer(c *crawler.Crawler, st store.Store, m *matcher.Matcher, logger *zap.Logger, topN int) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = 10
	}
	s := &Server{
		crawler: c,
		store:   st,
		matcher: m,
		logger:  logger,
		topN:    topN,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl", s.startCrawl)
		r.Get("/crawl/status", s.crawlStatus)
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/stats", s.jobStats)
			r.Post("/search", s.searchJobs)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Count(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// startCrawl launches one crawl session in the background. Only one
// session runs at a time; a second request while one is in flight gets
// 409.
func (s *Server) startCrawl(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "a crawl session is already running")
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		}()
		report, err := s.crawler.Run(context.Background())
		if err != nil {
			s.logger.Error("crawl session failed", zap.Error(err))
			return
		}
		s.mu.Lock()
		s.lastReport = &report
		s.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) crawlStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := crawlStatusResponse{
		State:   s.crawler.State(),
		Running: s.inFlight,
		LastRun: s.lastReport,
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

type crawlStatusResponse struct {
	State   jobs.SessionState `json:"state"`
	Running bool              `json:"running"`
	LastRun *jobs.CrawlReport `json:"last_run,omitempty"`
}

func (s *Server) jobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		s.logger.Error("statistics query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "statistics query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type searchRequest struct {
	Query      string   `json:"query"`
	Skills     []string `json:"skills"`
	Location   string   `json:"location"`
	Experience string   `json:"experience"`
	JobType    string   `json:"job_type"`
	Limit      int      `json:"limit"`
}

type searchResult struct {
	URL       string             `json:"url"`
	Title     string             `json:"title"`
	Company   string             `json:"company"`
	Location  string             `json:"location,omitempty"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
}

func (s *Server) searchJobs(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" && len(req.Skills) == 0 && req.Location == "" &&
		req.Experience == "" && req.JobType == "" {
		writeError(w, http.StatusBadRequest, "at least one search criterion is required")
		return
	}

	corpus, err := s.store.All(r.Context())
	if err != nil {
		s.logger.Error("corpus snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "corpus snapshot failed")
		return
	}

	profile := jobs.QueryProfile{
		Skills:     req.Skills,
		Location:   req.Location,
		Experience: req.Experience,
		JobType:    req.JobType,
		RawQuery:   req.Query,
	}
	matchStart := time.Now()
	results, err := s.matcher.Match(r.Context(), profile, corpus)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "match failed")
		return
	}
	metrics.ObserveMatchRequest(time.Since(matchStart))

	limit := req.Limit
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]searchResult, len(results))
	for i, res := range results {
		out[i] = searchResult{
			URL:       res.Record.URL,
			Title:     res.Record.Title,
			Company:   res.Record.Company,
			Location:  res.Record.Location,
			Score:     res.Score,
			Breakdown: res.Breakdown,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out, "total": len(corpus)})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			duration := time.Since(start)
			metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", duration),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
