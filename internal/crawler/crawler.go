// Package crawler orchestrates a crawl session: discover candidate URLs
// from the sitemap (or the paginated listing as a fallback), classify
// them, then fetch, extract, validate and persist each job page. A single
// page failure is absorbed and counted; it never aborts the session.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jobradar/jobradar/internal/archive"
	"github.com/jobradar/jobradar/internal/classifier"
	"github.com/jobradar/jobradar/internal/extractor"
	"github.com/jobradar/jobradar/internal/fetcher"
	"github.com/jobradar/jobradar/internal/jobs"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/publisher"
	"github.com/jobradar/jobradar/internal/store"
)

// RecordTopic names the event stream for persisted records.
const RecordTopic = "job-records"

// Clock abstracts time.Now for tests.
type Clock interface {
	Now() time.Time
}

// Promoter decides whether a fetched page needs headless rendering.
type Promoter interface {
	ShouldPromote(resp fetcher.Response) bool
}

// Config controls one crawl session.
type Config struct {
	BaseURL     string
	SitemapPath string
	// ListingPath is a fmt pattern with one %d page number verb.
	ListingPath    string
	MaxPages       int
	EmptyPageLimit int
	Workers        int
}

// Deps carries the crawl session collaborators. Fetcher, Classifier,
// Extractor, Store and Clock are required; the rest are optional.
type Deps struct {
	Fetcher    fetcher.Fetcher
	Headless   fetcher.Fetcher
	Detector   Promoter
	Classifier *classifier.Classifier
	Extractor  *extractor.Extractor
	Store      store.Store
	Clock      Clock
	Logger     *zap.Logger
	Archive    archive.Provider
	Publisher  publisher.Publisher
}

// Crawler runs crawl sessions against a single site.
type Crawler struct {
	cfg  Config
	deps Deps

	mu    sync.Mutex
	state jobs.SessionState
}

// New validates configuration and dependencies and builds a Crawler.
func New(cfg Config, deps Deps) (*Crawler, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	if cfg.EmptyPageLimit <= 0 {
		cfg.EmptyPageLimit = 3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if deps.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Crawler{cfg: cfg, deps: deps, state: jobs.StateIdle}, nil
}

// State reports the current session state.
func (c *Crawler) State() jobs.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Crawler) setState(s jobs.SessionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes one full crawl session and always returns a report; the
// error is non-nil only for context cancellation.
func (c *Crawler) Run(ctx context.Context) (jobs.CrawlReport, error) {
	report := jobs.CrawlReport{
		SessionID: uuid.NewString(),
		Started:   c.deps.Clock.Now(),
	}
	logger := c.deps.Logger.With(zap.String("session_id", report.SessionID))
	defer c.setState(jobs.StateDone)

	c.setState(jobs.StateDiscovering)
	discovered := c.discoverFromSitemap(ctx, logger)

	c.setState(jobs.StateClassifying)
	candidates := c.classify(discovered, &report)

	if len(candidates) == 0 {
		report.UsedPagination = true
		logger.Info("sitemap yielded no job candidates, falling back to pagination")
		candidates = c.discoverFromListing(ctx, logger, &report)
	}
	report.ClassifiedJob = len(candidates)

	c.setState(jobs.StateExtracting)
	if err := c.extractAll(ctx, logger, candidates, &report); err != nil {
		report.Duration = c.deps.Clock.Now().Sub(report.Started)
		return report, err
	}

	report.Duration = c.deps.Clock.Now().Sub(report.Started)
	mode := "sitemap"
	if report.UsedPagination {
		mode = "pagination"
	}
	metrics.ObserveSession(mode)
	logger.Info("crawl session finished",
		zap.Int("discovered", report.Discovered),
		zap.Int("classified_job", report.ClassifiedJob),
		zap.Int("extracted", report.Extracted),
		zap.Int("persisted", report.Persisted),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (c *Crawler) discoverFromSitemap(ctx context.Context, logger *zap.Logger) []string {
	sitemapURL := strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.SitemapPath
	resp, err := c.deps.Fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		logger.Warn("sitemap fetch failed", zap.String("url", sitemapURL), zap.Error(err))
		return nil
	}
	urls := parseSitemap(resp.Body, c.cfg.BaseURL)

	// A sitemapindex yields child sitemaps rather than page URLs; follow
	// them one level down.
	var out []string
	for _, u := range urls {
		if !isChildSitemap(u) {
			out = append(out, u)
			continue
		}
		child, err := c.deps.Fetcher.Fetch(ctx, u)
		if err != nil {
			logger.Warn("child sitemap fetch failed", zap.String("url", u), zap.Error(err))
			continue
		}
		out = append(out, parseSitemap(child.Body, c.cfg.BaseURL)...)
	}
	out = dedupe(out)
	logger.Info("sitemap discovered urls", zap.Int("count", len(out)))
	return out
}

func isChildSitemap(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "sitemap") && strings.HasSuffix(lower, ".xml")
}

// classify partitions discovered URLs and retains the job ones.
func (c *Crawler) classify(discovered []string, report *jobs.CrawlReport) []jobs.CrawlCandidate {
	report.Discovered += len(discovered)
	var candidates []jobs.CrawlCandidate
	for _, u := range discovered {
		class := c.deps.Classifier.Classify(u)
		metrics.ObserveCandidate(string(class))
		if class == jobs.ClassJob {
			candidates = append(candidates, jobs.CrawlCandidate{URL: u, Class: class})
		}
	}
	return candidates
}

// discoverFromListing walks /jobs/page/N until MaxPages or EmptyPageLimit
// consecutive pages without a new job link.
func (c *Crawler) discoverFromListing(ctx context.Context, logger *zap.Logger, report *jobs.CrawlReport) []jobs.CrawlCandidate {
	if c.cfg.ListingPath == "" {
		return nil
	}
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	seen := make(map[string]struct{})
	var candidates []jobs.CrawlCandidate
	emptyStreak := 0

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		pageURL := base + fmt.Sprintf(c.cfg.ListingPath, page)
		resp, err := c.deps.Fetcher.Fetch(ctx, pageURL)
		if err != nil {
			logger.Warn("listing page fetch failed", zap.String("url", pageURL), zap.Error(err))
			emptyStreak++
			if emptyStreak >= c.cfg.EmptyPageLimit {
				break
			}
			continue
		}

		links := dedupe(resolveAll(extractLinks(resp.Body), c.cfg.BaseURL))
		added := 0
		for _, link := range links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			report.Discovered++
			class := c.deps.Classifier.Classify(link)
			metrics.ObserveCandidate(string(class))
			if class == jobs.ClassJob {
				candidates = append(candidates, jobs.CrawlCandidate{URL: link, Class: class, Depth: page})
				added++
			}
		}
		if added == 0 {
			emptyStreak++
			if emptyStreak >= c.cfg.EmptyPageLimit {
				break
			}
		} else {
			emptyStreak = 0
		}
	}
	return candidates
}

// extractAll processes candidates with a bounded worker pool. Workers
// share one fetcher, so the per-host delay holds across the pool.
func (c *Crawler) extractAll(ctx context.Context, logger *zap.Logger, candidates []jobs.CrawlCandidate, report *jobs.CrawlReport) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for _, candidate := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()
			outcome := c.processCandidate(gctx, logger, report.SessionID, candidate)
			mu.Lock()
			outcome.apply(report)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// candidateOutcome accumulates one candidate's counter deltas so the
// report mutation happens under a single lock.
type candidateOutcome struct {
	extracted     bool
	persisted     bool
	skipped       bool
	fetchFailure  bool
	invalidRecord bool
	storeFailure  bool
}

func (o candidateOutcome) apply(report *jobs.CrawlReport) {
	if o.extracted {
		report.Extracted++
	}
	if o.persisted {
		report.Persisted++
	}
	if o.skipped {
		report.Skipped++
	}
	if o.fetchFailure {
		report.FetchFailures++
	}
	if o.invalidRecord {
		report.InvalidRecords++
	}
	if o.storeFailure {
		report.StoreFailures++
	}
}

func (c *Crawler) processCandidate(ctx context.Context, logger *zap.Logger, sessionID string, candidate jobs.CrawlCandidate) candidateOutcome {
	resp, err := c.deps.Fetcher.Fetch(ctx, candidate.URL)
	if err != nil {
		logger.Warn("fetch failed, skipping candidate", zap.String("url", candidate.URL), zap.Error(err))
		metrics.ObserveFetch(candidate.URL, "error", 0)
		metrics.ObserveSkipped("fetch")
		return candidateOutcome{skipped: true, fetchFailure: true}
	}
	metrics.ObserveFetch(candidate.URL, "success", resp.Duration)

	resp = c.maybePromote(ctx, logger, candidate.URL, resp)
	c.archivePage(ctx, logger, sessionID, candidate.URL, resp.Body)

	doc, err := extractor.Parse(resp.Body)
	if err != nil {
		logger.Warn("page parse failed", zap.String("url", candidate.URL), zap.Error(err))
		metrics.ObserveSkipped("parse")
		return candidateOutcome{skipped: true, invalidRecord: true}
	}

	record := c.deps.Extractor.Record(doc, candidate.URL, c.deps.Clock.Now())
	if err := record.Validate(); err != nil {
		logger.Warn("record failed validation, selectors may need maintenance",
			zap.String("url", candidate.URL), zap.Error(err))
		metrics.ObserveSkipped("invalid")
		return candidateOutcome{skipped: true, invalidRecord: true}
	}

	outcome := candidateOutcome{extracted: true}
	if err := c.deps.Store.Upsert(ctx, record); err != nil {
		logger.Error("store upsert failed", zap.String("url", candidate.URL), zap.Error(err))
		metrics.ObserveSkipped("store")
		outcome.storeFailure = true
		return outcome
	}
	outcome.persisted = true
	metrics.ObservePersisted()

	c.publishRecord(ctx, logger, sessionID, record)
	return outcome
}

// maybePromote re-fetches through the headless browser when the static
// body looks like a client-rendered shell. Promotion failures fall back
// to the static body.
func (c *Crawler) maybePromote(ctx context.Context, logger *zap.Logger, url string, resp fetcher.Response) fetcher.Response {
	if c.deps.Detector == nil || c.deps.Headless == nil {
		return resp
	}
	if !c.deps.Detector.ShouldPromote(resp) {
		return resp
	}
	rendered, err := c.deps.Headless.Fetch(ctx, url)
	if err != nil {
		logger.Warn("headless promotion failed, using static body", zap.String("url", url), zap.Error(err))
		return resp
	}
	logger.Debug("promoted to headless fetch", zap.String("url", url))
	return rendered
}

func (c *Crawler) archivePage(ctx context.Context, logger *zap.Logger, sessionID, url string, body []byte) {
	if c.deps.Archive == nil {
		return
	}
	path := archive.ObjectPath(sessionID, url)
	if _, err := c.deps.Archive.PutObject(ctx, path, "text/html", bytes.NewReader(body)); err != nil {
		logger.Warn("page archive failed", zap.String("url", url), zap.Error(err))
	}
}

func (c *Crawler) publishRecord(ctx context.Context, logger *zap.Logger, sessionID string, record jobs.Record) {
	if c.deps.Publisher == nil {
		return
	}
	event := publisher.RecordEvent{
		SessionID: sessionID,
		URL:       record.URL,
		Title:     record.Title,
		Company:   record.Company,
		ScrapedAt: record.ScrapedAt.Format(time.RFC3339),
	}
	if _, err := c.deps.Publisher.Publish(ctx, RecordTopic, event); err != nil {
		logger.Warn("record publish failed", zap.String("url", record.URL), zap.Error(err))
	}
}
