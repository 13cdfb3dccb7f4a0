// Package main wires together the job pipeline service binary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/api"
	"github.com/jobradar/jobradar/internal/archive"
	archivegcs "github.com/jobradar/jobradar/internal/archive/gcs"
	archivelocal "github.com/jobradar/jobradar/internal/archive/local"
	"github.com/jobradar/jobradar/internal/classifier"
	"github.com/jobradar/jobradar/internal/clock/system"
	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/crawler"
	"github.com/jobradar/jobradar/internal/detector"
	"github.com/jobradar/jobradar/internal/extractor"
	"github.com/jobradar/jobradar/internal/fetcher"
	collyfetcher "github.com/jobradar/jobradar/internal/fetcher/colly"
	headlessfetcher "github.com/jobradar/jobradar/internal/fetcher/headless"
	"github.com/jobradar/jobradar/internal/logging"
	"github.com/jobradar/jobradar/internal/matcher"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/publisher"
	publishermemory "github.com/jobradar/jobradar/internal/publisher/memory"
	publisherpubsub "github.com/jobradar/jobradar/internal/publisher/pubsub"
	"github.com/jobradar/jobradar/internal/store"
	storememory "github.com/jobradar/jobradar/internal/store/memory"
	storepostgres "github.com/jobradar/jobradar/internal/store/postgres"
	storesqlite "github.com/jobradar/jobradar/internal/store/sqlite"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	crawlOnce := flag.Bool("crawl-once", false, "Run a single crawl session, print the report and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("store close failed", zap.Error(closeErr))
		}
	}()

	arch, err := buildArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}
	pub, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	probeFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Crawler.UserAgent,
		Timeout:     cfg.RequestTimeout(),
		Delay:       cfg.RequestDelay(),
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:  time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
	})

	var headless fetcher.Fetcher
	var promote crawler.Promoter
	if cfg.Headless.Enabled {
		headlessFetcher, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			defer headlessFetcher.Close()
			headless = headlessFetcher
			promote = detector.NewHeuristic(cfg.Headless.MinHTMLBytes)
		}
	}

	urlClassifier, err := classifier.New(cfg.Site.BaseURL, cfg.Site.NonJobPatterns)
	if err != nil {
		logger.Fatal("classifier init failed", zap.Error(err))
	}

	crawl, err := crawler.New(crawler.Config{
		BaseURL:        cfg.Site.BaseURL,
		SitemapPath:    cfg.Site.SitemapPath,
		ListingPath:    cfg.Site.ListingPath,
		MaxPages:       cfg.Crawler.MaxPages,
		EmptyPageLimit: cfg.Crawler.EmptyPageLimit,
		Workers:        cfg.Crawler.Workers,
	}, crawler.Deps{
		Fetcher:    probeFetcher,
		Headless:   headless,
		Detector:   promote,
		Classifier: urlClassifier,
		Extractor:  extractor.New(),
		Store:      st,
		Clock:      system.New(),
		Logger:     logger.Named("crawler"),
		Archive:    arch,
		Publisher:  pub,
	})
	if err != nil {
		logger.Fatal("crawler init failed", zap.Error(err))
	}

	if *crawlOnce {
		report, err := crawl.Run(ctx)
		if err != nil {
			logger.Fatal("crawl session failed", zap.Error(err))
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Fatal("report encode failed", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	rank := matcher.New(matcher.NewTFIDF(), logger.Named("matcher"), matcher.Config{
		ScoreFloor: cfg.Matcher.ScoreFloor,
	})
	apiServer := api.NewServer(crawl, st, rank, logger.Named("api"), cfg.Matcher.TopN)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return storememory.New(), nil
	case "sqlite":
		return storesqlite.Open(cfg.Store.SQLitePath)
	case "postgres":
		return storepostgres.New(ctx, storepostgres.Config{
			DSN:      cfg.Store.DSN,
			MaxConns: cfg.Store.MaxOpenConns,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildArchive(ctx context.Context, cfg config.Config) (archive.Provider, error) {
	switch cfg.Archive.Backend {
	case "none":
		return nil, nil
	case "local":
		return archivelocal.New(cfg.Archive.LocalDir)
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (publisher.Publisher, error) {
	if !cfg.PubSub.Enabled {
		return publishermemory.New(), nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return publisherpubsub.New(client.Topic(cfg.PubSub.TopicName)), nil
}
