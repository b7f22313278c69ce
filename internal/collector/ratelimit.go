package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/sitelens/sitelens/internal/telemetry"
)

// RateLimiter is the engine-wide token bucket. A single bucket is shared by
// every batch worker so the aggregate fetch rate, not the per-worker rate,
// respects the configured requests-per-second.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter for the given rate. rps <= 0 disables
// limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	r := rate.Limit(rps)
	if rps <= 0 {
		r = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(r, burst)}
}

// Wait blocks until a token is available, respecting the context.
func (l *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		telemetry.ObserveRateLimitDelay(waited)
	}
	return nil
}
