package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEnforcer(verifySSL bool, limiter *RateLimiter) RobotsPolicy {
	return NewRobotsEnforcer(true, "sitelens-bot/0.1", verifySSL, limiter, zap.NewNop())
}

func TestRobotsEnforcerDisallow(t *testing.T) {
	t.Parallel()

	var robotsHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsHits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin/\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	policy := newTestEnforcer(true, NewRateLimiter(0, 0))
	ctx := context.Background()

	require.False(t, policy.Allowed(ctx, srv.URL+"/admin/settings"))
	require.True(t, policy.Allowed(ctx, srv.URL+"/public"))
	// Both checks hit the same host; robots.txt is fetched once.
	require.EqualValues(t, 1, robotsHits.Load())
}

func TestRobotsEnforcerFailsOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // unreachable host

	policy := newTestEnforcer(true, NewRateLimiter(0, 0))
	require.True(t, policy.Allowed(context.Background(), srv.URL+"/page"))
}

func TestRobotsDisabledAllowsEverything(t *testing.T) {
	t.Parallel()

	policy := NewRobotsEnforcer(false, "sitelens-bot/0.1", true, NewRateLimiter(0, 0), zap.NewNop())
	require.True(t, policy.Allowed(context.Background(), "https://example.com/anything"))
}

func TestRobotsEnforcerBadURL(t *testing.T) {
	t.Parallel()

	policy := newTestEnforcer(true, NewRateLimiter(0, 0))
	require.False(t, policy.Allowed(context.Background(), "http://bad url/%"))
}

func TestRobotsFetchSharesRateLimiter(t *testing.T) {
	t.Parallel()

	var robotsHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsHits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	limiter := NewRateLimiter(1, 1)
	require.NoError(t, limiter.Wait(context.Background())) // spend the only token

	policy := newTestEnforcer(true, limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// With the bucket empty the robots fetch blocks on the limiter, gives up
	// on the context and fails open without touching the server.
	require.True(t, policy.Allowed(ctx, srv.URL+"/page"))
	require.Zero(t, robotsHits.Load())
}

func TestRobotsFetchHonorsVerifySSLToggle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	defer srv.Close()

	// Verification on: the self-signed certificate is rejected and the
	// policy fails open.
	strict := newTestEnforcer(true, NewRateLimiter(0, 0))
	require.True(t, strict.Allowed(context.Background(), srv.URL+"/private"))

	// Verification off: robots.txt is readable and its rules apply.
	lax := newTestEnforcer(false, NewRateLimiter(0, 0))
	require.False(t, lax.Allowed(context.Background(), srv.URL+"/private"))
}
