// Package collyfetcher implements fetcher.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/jobradar/jobradar/internal/fetcher"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/retry"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Delay is the minimum inter-request gap enforced across all calls.
	Delay       time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Fetcher fetches pages through a cloned Colly collector per request,
// sharing one pooled transport so TLS/TCP setup is amortized across the
// session. A single limiter keeps every caller behind the per-host delay.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	limiter       *rate.Limiter
	policy        retry.Policy
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = 250 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 5 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	transport := newHTTPTransport()
	c.WithTransport(transport)
	c.IgnoreRobotsTxt = false

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		limiter:       limiter,
		policy: retry.Policy{
			// MaxRetries counts re-attempts after the first try.
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   cfg.BackoffBase,
			MaxDelay:    cfg.BackoffMax,
		},
	}
}

// Fetch executes a GET with bounded retries. Transient failures (timeout,
// connection reset, 5xx) are retried with exponential backoff; 4xx returns
// immediately as a permanent fetcher.Error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (fetcher.Response, error) {
	var result fetcher.Response
	attempts := 0
	err := retry.Do(ctx, f.policy, fetcher.Retryable, func(ctx context.Context) error {
		attempts++
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})
	metrics.ObserveFetchRetries(attempts - 1)
	if err != nil {
		return fetcher.Response{}, err
	}
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (fetcher.Response, error) {
	var (
		result   fetcher.Response
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	collector.OnResponse(func(r *colly.Response) {
		result = fetcher.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = classify(url, r, err)
	})

	err := f.runCollector(ctx, collector, url)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The visit goroutine may still be running; fetchErr is only
		// safe to read after the done channel delivered.
		return fetcher.Response{}, err
	}
	// OnError sees the response status; prefer its classification over
	// the bare Visit error.
	if fetchErr != nil {
		return fetcher.Response{}, fetchErr
	}
	if err != nil {
		return fetcher.Response{}, err
	}
	return result, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return classify(url, nil, err)
		}
		return nil
	}
}

// classify converts a raw Colly failure into a fetcher.Error with the right
// kind so the retry predicate can do its job.
func classify(url string, r *colly.Response, err error) error {
	var fe *fetcher.Error
	if errors.As(err, &fe) {
		return err
	}

	status := 0
	if r != nil {
		status = r.StatusCode
	}
	kind := fetcher.KindNetwork
	switch {
	case status > 0 && fetcher.KindForStatus(status) != "":
		kind = fetcher.KindForStatus(status)
	case errors.Is(err, context.DeadlineExceeded):
		kind = fetcher.KindTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = fetcher.KindTimeout
		}
	}
	return &fetcher.Error{URL: url, Kind: kind, StatusCode: status, Err: fmt.Errorf("colly visit: %w", err)}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
