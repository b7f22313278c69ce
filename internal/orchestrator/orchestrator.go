// Package orchestrator drives the analysis pipeline: cache check, fetch,
// parse, concurrent analyzers, aggregation, cache store. It also runs batch
// jobs over a worker pool with per-URL failure isolation.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sitelens/sitelens/internal/aggregate"
	"github.com/sitelens/sitelens/internal/analysis"
	"github.com/sitelens/sitelens/internal/analyzer"
	"github.com/sitelens/sitelens/internal/fingerprint"
	"github.com/sitelens/sitelens/internal/telemetry"
)

// maxAnalyzerWorkers caps per-URL analyzer concurrency. Analyzers are CPU
// bound and cheap; more parallelism than this buys nothing.
const maxAnalyzerWorkers = 4

// Options tunes orchestration.
type Options struct {
	// Workers is the batch worker pool size.
	Workers int
	// AnalyzerWorkers bounds concurrent analyzers per URL. Zero means
	// GOMAXPROCS capped at maxAnalyzerWorkers.
	AnalyzerWorkers int
	// Deadline bounds a whole batch. Zero means no deadline.
	Deadline time.Duration
	// PublishTopic is the completion-event topic, used when a publisher is
	// attached.
	PublishTopic string
}

// Orchestrator wires the pipeline stages together. All dependencies are
// injected; it owns no I/O of its own.
type Orchestrator struct {
	registry   *analyzer.Registry
	collector  analysis.Collector
	processor  analysis.Processor
	aggregator *aggregate.Aggregator
	cache      analysis.Cache
	publisher  analysis.Publisher
	clock      analysis.Clock
	logger     *zap.Logger
	opts       Options
}

// New builds an Orchestrator. publisher may be nil.
func New(
	registry *analyzer.Registry,
	coll analysis.Collector,
	proc analysis.Processor,
	agg *aggregate.Aggregator,
	cache analysis.Cache,
	publisher analysis.Publisher,
	clock analysis.Clock,
	logger *zap.Logger,
	opts Options,
) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.AnalyzerWorkers <= 0 {
		opts.AnalyzerWorkers = min(runtime.GOMAXPROCS(0), maxAnalyzerWorkers)
	}
	return &Orchestrator{
		registry:   registry,
		collector:  coll,
		processor:  proc,
		aggregator: agg,
		cache:      cache,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
		opts:       opts,
	}
}

// AnalyzeURL runs the pipeline for one request. Unknown analyzer names fail
// here, before any fetch. Collection failures come back as a FAILED result,
// not an error, so batch callers treat both paths uniformly.
func (o *Orchestrator) AnalyzeURL(ctx context.Context, req analysis.AnalysisRequest) (*analysis.AnalysisResult, error) {
	analyzers, err := o.registry.Resolve(req.Analyzers)
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint.ForRequest(req)
	if err != nil {
		return nil, fmt.Errorf("fingerprint request: %w", err)
	}

	result, err := o.cache.Do(ctx, fp, func(ctx context.Context) (*analysis.AnalysisResult, error) {
		return o.run(ctx, req, analyzers)
	})
	if err != nil {
		result = o.errorResult(req.URL, err)
	}

	telemetry.ObservePageAnalyzed(req.URL, string(result.Status))
	o.publish(ctx, fp, result)
	return result, nil
}

// run executes the uncached pipeline: fetch, parse, analyze, merge.
func (o *Orchestrator) run(ctx context.Context, req analysis.AnalysisRequest, analyzers []analysis.Analyzer) (*analysis.AnalysisResult, error) {
	startedAt := o.clock.Now()

	raw, err := o.collector.Fetch(ctx, req.URL, req.Collector)
	if err != nil {
		return nil, err
	}

	doc, err := o.processor.Parse(raw, req.Processor)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", req.URL, err)
	}

	completed, failures := o.analyze(ctx, doc, analyzers, req.Analyzer)

	result := o.aggregator.Merge(req.URL, completed, startedAt, o.clock.Now())
	o.attachFailures(result, failures)

	for _, f := range result.Findings {
		telemetry.ObserveFinding(string(f.Severity))
	}
	o.logger.Info("analysis completed",
		zap.String("url", req.URL),
		zap.Float64("overall_score", result.OverallScore),
		zap.String("status", string(result.Status)),
		zap.Int("findings", result.TotalFindings()),
	)
	return result, nil
}

// analyze fans the analyzers out over a bounded worker set. The parsed
// document is shared read-only; each analyzer failure is isolated.
func (o *Orchestrator) analyze(ctx context.Context, doc *analysis.ParsedDocument, analyzers []analysis.Analyzer, opts analysis.AnalyzerOptions) ([]analysis.AnalyzerResult, map[string]error) {
	var (
		mu        sync.Mutex
		completed = make([]analysis.AnalyzerResult, 0, len(analyzers))
		failures  = map[string]error{}
	)

	sem := make(chan struct{}, o.opts.AnalyzerWorkers)
	var wg sync.WaitGroup
	for _, a := range analyzers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			res, err := a.Analyze(ctx, doc, opts)
			elapsed := time.Since(start)
			telemetry.ObserveAnalyzerDuration(a.Name(), elapsed)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[a.Name()] = err
				return
			}
			res.Analyzer = a.Name()
			res.Duration = elapsed
			completed = append(completed, res)
		}()
	}
	wg.Wait()

	// Deterministic merge order regardless of completion order.
	sortResults(completed)
	return completed, failures
}

// attachFailures records failed analyzers as synthetic INFO findings and
// downgrades the result to PARTIAL. Failed analyzers stay out of the overall
// score; they are reported, not averaged in as zero.
func (o *Orchestrator) attachFailures(result *analysis.AnalysisResult, failures map[string]error) {
	for _, name := range sortedKeys(failures) {
		err := failures[name]
		o.logger.Warn("analyzer failed", zap.String("analyzer", name), zap.Error(err))

		f := analysis.Finding{
			Analyzer: name,
			Category: "analyzer-error",
			Severity: analysis.SeverityInfo,
			Message:  fmt.Sprintf("analyzer did not complete: %v", err),
		}
		result.Analyzers[name] = analysis.AnalyzerResult{
			Analyzer: name,
			Findings: []analysis.Finding{f},
		}
		result.Findings = append(result.Findings, f)
		result.SeverityCounts[analysis.SeverityInfo]++
		result.Status = analysis.StatusPartial
	}
}

// errorResult maps a pipeline error to a FAILED result. Timeouts land here
// too: client-side timeout errors wrap context.DeadlineExceeded, so the
// error chain cannot distinguish a slow page from a batch deadline. Only the
// batch scheduler decides SKIPPED, via skippedResult.
func (o *Orchestrator) errorResult(url string, err error) *analysis.AnalysisResult {
	now := o.clock.Now()
	if ce, ok := analysis.AsCollectionError(err); ok {
		o.logger.Warn("collection failed",
			zap.String("url", url),
			zap.String("kind", string(ce.Kind)),
			zap.Error(err),
		)
	} else {
		o.logger.Error("analysis failed", zap.String("url", url), zap.Error(err))
	}
	return &analysis.AnalysisResult{
		URL:         url,
		Analyzers:   map[string]analysis.AnalyzerResult{},
		StartedAt:   now,
		CompletedAt: now,
		Status:      analysis.StatusFailed,
		Error:       err.Error(),
	}
}

// skippedResult records a URL the batch deadline cut off before its
// pipeline started.
func (o *Orchestrator) skippedResult(url string, err error) *analysis.AnalysisResult {
	now := o.clock.Now()
	o.logger.Warn("url skipped", zap.String("url", url), zap.Error(err))
	return &analysis.AnalysisResult{
		URL:         url,
		Analyzers:   map[string]analysis.AnalyzerResult{},
		StartedAt:   now,
		CompletedAt: now,
		Status:      analysis.StatusSkipped,
		Error:       err.Error(),
	}
}

func (o *Orchestrator) publish(ctx context.Context, fp string, result *analysis.AnalysisResult) {
	if o.publisher == nil {
		return
	}
	event := map[string]any{
		"url":           result.URL,
		"fingerprint":   fp,
		"overall_score": result.OverallScore,
		"status":        result.Status,
		"completed_at":  result.CompletedAt,
	}
	id, err := o.publisher.Publish(ctx, o.opts.PublishTopic, event)
	if err != nil {
		o.logger.Warn("publish completion event failed", zap.String("url", result.URL), zap.Error(err))
		return
	}
	o.logger.Debug("completion event published", zap.String("url", result.URL), zap.String("message_id", id))
}
