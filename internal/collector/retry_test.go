package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitelens/sitelens/internal/analysis"
)

func policyWith(maxRetries int) *RetryPolicy {
	opts := analysis.DefaultCollectorOptions()
	opts.MaxRetries = maxRetries
	opts.RetryDelay = 10 * time.Millisecond
	opts.MaxRetryDelay = 80 * time.Millisecond
	return NewRetryPolicy(opts)
}

func TestShouldRetryTransientKinds(t *testing.T) {
	t.Parallel()

	p := policyWith(2)
	timeout := analysis.NewCollectionError(analysis.KindTimeout, "u", nil)
	conn := analysis.NewCollectionError(analysis.KindConnection, "u", nil)

	require.True(t, p.ShouldRetry(timeout, 0))
	require.True(t, p.ShouldRetry(conn, 1))
	require.False(t, p.ShouldRetry(timeout, 2), "attempts exhausted")
	require.False(t, p.ShouldRetry(nil, 0))
}

func TestShouldRetryPermanentKinds(t *testing.T) {
	t.Parallel()

	p := policyWith(5)
	robots := analysis.NewCollectionError(analysis.KindRobotsDisallowed, "u", nil)
	notFound := analysis.NewHTTPStatusError("u", 404)
	server := analysis.NewHTTPStatusError("u", 503)

	require.False(t, p.ShouldRetry(robots, 0))
	require.False(t, p.ShouldRetry(notFound, 0))
	require.True(t, p.ShouldRetry(server, 0), "5xx is transient")
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	p := policyWith(10)
	for attempt := range 8 {
		d := p.Backoff(attempt)
		require.Positive(t, d)
		require.LessOrEqual(t, d, 80*time.Millisecond)
	}
	// Attempt 0 stays near the base delay.
	require.Less(t, p.Backoff(0), 20*time.Millisecond)
}

func TestSleepHonorsContext(t *testing.T) {
	t.Parallel()

	p := policyWith(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, p.Sleep(ctx, 5))
}
