// Package cache memoizes analysis results keyed by request fingerprint.
//
// The cache is an optimization, never a point of failure: a broken backend
// degrades to recomputation, and concurrent misses on the same fingerprint
// collapse into a single computation via singleflight.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sitelens/sitelens/internal/analysis"
	"github.com/sitelens/sitelens/internal/telemetry"
)

// Store is the persistence backend behind Cache. Implementations report
// backend failures as errors; expiry policy stays in Cache.
type Store interface {
	Get(ctx context.Context, fingerprint string) (analysis.CacheEntry, bool, error)
	Set(ctx context.Context, entry analysis.CacheEntry) error
	Delete(ctx context.Context, fingerprint string) error
}

// Cache implements analysis.Cache over a Store.
type Cache struct {
	store  Store
	ttl    time.Duration
	clock  analysis.Clock
	logger *zap.Logger
	group  singleflight.Group
}

// New builds a Cache with the given TTL.
func New(store Store, ttl time.Duration, clock analysis.Clock, logger *zap.Logger) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		clock:  clock,
		logger: logger,
	}
}

// Get returns the cached result for the fingerprint if present and fresh.
// Expired entries are evicted lazily here; backend errors count as a miss.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*analysis.AnalysisResult, bool) {
	entry, ok, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		c.logger.Warn("cache backend get failed, bypassing",
			zap.String("fingerprint", fingerprint), zap.Error(err))
		telemetry.ObserveCacheEvent("bypass")
		return nil, false
	}
	if !ok {
		telemetry.ObserveCacheEvent("miss")
		return nil, false
	}
	if entry.Expired(c.clock.Now()) {
		if err := c.store.Delete(ctx, fingerprint); err != nil {
			c.logger.Warn("cache evict failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		}
		telemetry.ObserveCacheEvent("expired")
		return nil, false
	}
	telemetry.ObserveCacheEvent("hit")
	return entry.Payload, true
}

// Set stores the result under the fingerprint with the configured TTL.
// Backend errors are logged, never surfaced.
func (c *Cache) Set(ctx context.Context, fingerprint string, result *analysis.AnalysisResult) {
	now := c.clock.Now()
	entry := analysis.CacheEntry{
		Fingerprint: fingerprint,
		Payload:     result,
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.ttl),
	}
	if err := c.store.Set(ctx, entry); err != nil {
		c.logger.Warn("cache backend set failed",
			zap.String("fingerprint", fingerprint), zap.Error(err))
	}
}

// Invalidate drops the entry for the fingerprint.
func (c *Cache) Invalidate(ctx context.Context, fingerprint string) {
	if err := c.store.Delete(ctx, fingerprint); err != nil {
		c.logger.Warn("cache invalidate failed",
			zap.String("fingerprint", fingerprint), zap.Error(err))
	}
}

// Do returns the cached result or computes it, guaranteeing at most one
// concurrent computation per fingerprint. Errors from compute propagate to
// every waiting caller; cache trouble alone never fails the call.
func (c *Cache) Do(ctx context.Context, fingerprint string, compute func(ctx context.Context) (*analysis.AnalysisResult, error)) (*analysis.AnalysisResult, error) {
	if result, ok := c.Get(ctx, fingerprint); ok {
		return result, nil
	}
	v, err, shared := c.group.Do(fingerprint, func() (any, error) {
		// A racing caller may have stored the result while we waited.
		if result, ok := c.Get(ctx, fingerprint); ok {
			return result, nil
		}
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, fingerprint, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("cache computation shared", zap.String("fingerprint", fingerprint))
	}
	return v.(*analysis.AnalysisResult), nil
}
