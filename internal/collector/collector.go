package collector

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/sitelens/sitelens/internal/analysis"
	"github.com/sitelens/sitelens/internal/fingerprint"
	"github.com/sitelens/sitelens/internal/telemetry"
)

// Collector implements analysis.Collector. The rate limiter and the robots
// cache are the only shared mutable state; both are internally synchronized
// and shared by every batch worker.
type Collector struct {
	engine        Engine
	headless      Engine
	detector      PromoteDetector
	robots        RobotsPolicy
	limiter       *RateLimiter
	archive       analysis.BlobStore
	archivePrefix string
	logger        *zap.Logger
}

// Option customizes a Collector.
type Option func(*Collector)

// WithHeadless attaches a headless engine and promotion detector.
func WithHeadless(engine Engine, detector PromoteDetector) Option {
	return func(c *Collector) {
		c.headless = engine
		c.detector = detector
	}
}

// WithArchive attaches a blob store for raw-body archiving.
func WithArchive(store analysis.BlobStore, prefix string) Option {
	return func(c *Collector) {
		c.archive = store
		c.archivePrefix = prefix
	}
}

// New builds a Collector from options. The token bucket and robots cache
// are created here once and shared across all fetches.
func New(opts analysis.CollectorOptions, clock analysis.Clock, logger *zap.Logger, extra ...Option) *Collector {
	limiter := NewRateLimiter(opts.RequestsPerSecond, opts.Burst)
	c := &Collector{
		engine:  NewCollyEngine(opts.VerifySSL, clock),
		robots:  NewRobotsEnforcer(opts.RespectRobots, opts.UserAgent, opts.VerifySSL, limiter, logger),
		limiter: limiter,
		logger:  logger,
	}
	for _, o := range extra {
		o(c)
	}
	return c
}

// Fetch retrieves one page under robots, rate-limit and retry policy.
// Failures come back as *analysis.CollectionError.
func (c *Collector) Fetch(ctx context.Context, target string, opts analysis.CollectorOptions) (analysis.RawDocument, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return analysis.RawDocument{}, analysis.NewCollectionError(analysis.KindConnection, target, fmt.Errorf("invalid url: %w", err))
	}

	if !c.robots.Allowed(ctx, target) {
		return analysis.RawDocument{}, analysis.NewCollectionError(analysis.KindRobotsDisallowed, target, nil)
	}

	retry := NewRetryPolicy(opts)
	var lastErr *analysis.CollectionError
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return analysis.RawDocument{}, lastErr
			}
			return analysis.RawDocument{}, classify(target, err)
		}

		raw, err := c.engine.Get(ctx, target, opts)
		if err == nil {
			raw = c.maybePromote(ctx, raw, opts)
			c.maybeArchive(ctx, raw, opts)
			return raw, nil
		}

		lastErr = classify(target, err)
		if !retry.ShouldRetry(lastErr, attempt) {
			return analysis.RawDocument{}, lastErr
		}
		telemetry.ObserveFetchRetry()
		c.logger.Debug("retrying fetch",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
		if err := retry.Sleep(ctx, attempt); err != nil {
			return analysis.RawDocument{}, lastErr
		}
	}
}

// maybePromote reruns the fetch headless when the probe result looks
// script-rendered. A failed promotion keeps the probe result.
func (c *Collector) maybePromote(ctx context.Context, raw analysis.RawDocument, opts analysis.CollectorOptions) analysis.RawDocument {
	if !opts.HeadlessAllowed || c.headless == nil || c.detector == nil {
		return raw
	}
	if !c.detector.ShouldPromote(raw) {
		return raw
	}
	rendered, err := c.headless.Get(ctx, raw.URL, opts)
	if err != nil {
		c.logger.Warn("headless promotion failed; keeping probe result",
			zap.String("url", raw.URL), zap.Error(err))
		return raw
	}
	return rendered
}

func (c *Collector) maybeArchive(ctx context.Context, raw analysis.RawDocument, opts analysis.CollectorOptions) {
	if !opts.ArchiveBody || c.archive == nil || len(raw.Body) == 0 {
		return
	}
	host := telemetry.SanitizeSite(raw.URL)
	path := fmt.Sprintf("%s/%s/%s.html", c.archivePrefix, host, fingerprint.Hash(raw.Body))
	uri, err := c.archive.PutObject(ctx, path, "text/html; charset=utf-8", raw.Body)
	if err != nil {
		c.logger.Warn("archive raw body failed", zap.String("url", raw.URL), zap.Error(err))
		return
	}
	c.logger.Debug("raw body archived", zap.String("url", raw.URL), zap.String("blob_uri", uri))
}
