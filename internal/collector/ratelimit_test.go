package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterEnforcesAggregateRate(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(10, 1)
	ctx := context.Background()

	start := time.Now()
	for range 4 {
		require.NoError(t, l.Wait(ctx))
	}
	// First token is free, the next three cost 100ms each.
	require.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestRateLimiterUnlimitedWhenDisabled(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(0, 0)
	start := time.Now()
	for range 100 {
		require.NoError(t, l.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiterRespectsContext(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(0.1, 1)
	require.NoError(t, l.Wait(context.Background())) // consume the burst

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx))
}
