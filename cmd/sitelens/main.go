// Package main wires the analysis engine into a batch CLI with an optional
// operational HTTP listener.
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
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sitelens/sitelens/internal/aggregate"
	"github.com/sitelens/sitelens/internal/analysis"
	"github.com/sitelens/sitelens/internal/analyzer"
	"github.com/sitelens/sitelens/internal/archive"
	"github.com/sitelens/sitelens/internal/cache"
	"github.com/sitelens/sitelens/internal/clock/system"
	"github.com/sitelens/sitelens/internal/collector"
	"github.com/sitelens/sitelens/internal/config"
	"github.com/sitelens/sitelens/internal/logging"
	"github.com/sitelens/sitelens/internal/orchestrator"
	"github.com/sitelens/sitelens/internal/processor"
	"github.com/sitelens/sitelens/internal/publish"
	"github.com/sitelens/sitelens/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	analyzers := flag.String("analyzers", "", "Comma-separated analyzer names (default: all enabled in config)")
	pretty := flag.Bool("pretty", true, "Indent the JSON output")
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sitelens [flags] URL [URL...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, urls, splitNames(*analyzers), *pretty); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, urls []string, names []string, pretty bool) error {
	clock := system.New()

	store, closeStore, err := buildCacheStore(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	resultCache := cache.New(store, cfg.CacheTTL(), clock, logger)

	blobs, err := buildArchive(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, closePub, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePub()

	collOpts := cfg.CollectorOptions()
	collExtras := []collector.Option{}
	if blobs != nil {
		collExtras = append(collExtras, collector.WithArchive(blobs, cfg.Archive.Prefix))
	}
	if collOpts.HeadlessAllowed {
		headless, hErr := collector.NewHeadlessEngine(collector.HeadlessConfig{
			MaxParallel:       cfg.Batch.Workers,
			NavigationTimeout: collOpts.Timeout,
		}, clock)
		if hErr != nil {
			logger.Warn("headless engine init failed, probe-only fetching", zap.Error(hErr))
		} else {
			defer headless.Close()
			collExtras = append(collExtras, collector.WithHeadless(headless, collector.NewHeuristic(0)))
		}
	}
	coll := collector.New(collOpts, clock, logger, collExtras...)

	orch := orchestrator.New(
		analyzer.NewDefault(logger),
		coll,
		processor.New(logger),
		aggregate.New(cfg.Analyzer.OverallWeights),
		resultCache,
		publisher,
		clock,
		logger,
		orchestrator.Options{
			Workers:         cfg.Batch.Workers,
			AnalyzerWorkers: cfg.Batch.AnalyzerWorkers,
			Deadline:        cfg.BatchDeadline(),
			PublishTopic:    cfg.Publish.Topic,
		},
	)

	if cfg.Ops.Enabled {
		stopOps := startOpsListener(cfg.Ops.Port, logger)
		defer stopOps()
	}

	if len(names) == 0 {
		names = cfg.Analyzer.Enabled
	}
	reqs := make([]analysis.AnalysisRequest, 0, len(urls))
	for _, u := range urls {
		reqs = append(reqs, analysis.AnalysisRequest{
			URL:       u,
			Analyzers: names,
			Collector: collOpts,
			Processor: cfg.ProcessorOptions(),
			Analyzer:  cfg.AnalyzerOptions(),
		})
	}

	var payload any
	if len(reqs) == 1 {
		result, err := orch.AnalyzeURL(ctx, reqs[0])
		if err != nil {
			return err
		}
		payload = result
	} else {
		payload = orch.AnalyzeBatch(ctx, reqs)
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func buildCacheStore(ctx context.Context, cfg config.Config, clock analysis.Clock, logger *zap.Logger) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "postgres":
		store, err := cache.NewPostgresStore(ctx, cfg.Cache.PostgresDSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres cache: %w", err)
		}
		return store, store.Close, nil
	default:
		store := cache.NewMemoryStore(clock, cfg.CacheSweepInterval())
		return store, store.Close, nil
	}
}

func buildArchive(ctx context.Context, cfg config.Config) (analysis.BlobStore, error) {
	if !cfg.Collector.ArchiveBody {
		return nil, nil
	}
	switch cfg.Archive.Backend {
	case "local":
		return archive.NewLocal(cfg.Archive.LocalDir)
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return archive.NewGCS(ctx, client, cfg.Archive.GCSBucket)
	default:
		return archive.NewMemory(), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (analysis.Publisher, func(), error) {
	if !cfg.Publish.Enabled {
		return nil, func() {}, nil
	}
	switch cfg.Publish.Backend {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Publish.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		pub, err := publish.NewPubSub(client)
		if err != nil {
			return nil, nil, err
		}
		return pub, pub.Close, nil
	default:
		return publish.NewMemory(), func() {}, nil
	}
}

// startOpsListener serves liveness and metrics endpoints until the returned
// stop function runs.
func startOpsListener(port int, logger *zap.Logger) func() {
	r := chi.NewRouter()
	r.Use(telemetry.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", telemetry.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops listener failed", zap.Error(err))
		}
	}()
	logger.Info("ops listener started", zap.Int("port", port))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
