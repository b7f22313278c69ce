package collector

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"github.com/sitelens/sitelens/internal/analysis"
)

// RetryPolicy implements jittered exponential backoff over transient
// collection failures. Robots denials and client errors never retry.
type RetryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryPolicy builds a policy from collector options.
func NewRetryPolicy(opts analysis.CollectorOptions) *RetryPolicy {
	base := opts.RetryDelay
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	maxDelay := opts.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	return &RetryPolicy{
		maxRetries: opts.MaxRetries,
		baseDelay:  base,
		maxDelay:   maxDelay,
	}
}

// ShouldRetry decides whether the attempt-th failure warrants another try.
// attempt is zero-based.
func (p *RetryPolicy) ShouldRetry(err *analysis.CollectionError, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxRetries {
		return false
	}
	return err.Retryable()
}

// Backoff returns the wait before the next attempt: half the capped
// exponential delay fixed, the other half random jitter.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

// Sleep pauses for the attempt's backoff or until the context ends.
func (p *RetryPolicy) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
