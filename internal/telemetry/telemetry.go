// Package telemetry exposes Prometheus metrics for the analysis engine.
package telemetry

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesAnalyzedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelens_pages_analyzed_total",
			Help: "Total number of pages analyzed, labeled by site and status.",
		},
		[]string{"site", "status"},
	)

	findingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelens_findings_total",
			Help: "Total number of findings reported, labeled by severity.",
		},
		[]string{"severity"},
	)

	cacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelens_cache_events_total",
			Help: "Cache lookups, labeled by outcome (hit, miss, bypass).",
		},
		[]string{"outcome"},
	)

	fetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitelens_fetch_retries_total",
			Help: "Total fetch attempts beyond the first.",
		},
	)

	rateLimitDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitelens_rate_limit_delay_seconds",
			Help:    "Histogram of token-bucket wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	analyzerDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitelens_analyzer_duration_seconds",
			Help:    "Histogram of per-analyzer execution time.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"analyzer"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitelens_active_workers",
			Help: "Number of batch workers currently running a pipeline.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total ops-listener HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of ops-listener request latencies.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.statusCode)).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, routePattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// SanitizeSite extracts a lowercase hostname from a URL for labeling.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObservePageAnalyzed records the outcome of one per-URL pipeline.
func ObservePageAnalyzed(site string, status string) {
	pagesAnalyzedTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveFinding records one reported finding.
func ObserveFinding(severity string) {
	findingsTotal.WithLabelValues(severity).Inc()
}

// ObserveCacheEvent records a cache lookup outcome.
func ObserveCacheEvent(outcome string) {
	cacheEventsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchRetry records one retry attempt.
func ObserveFetchRetry() {
	fetchRetriesTotal.Inc()
}

// ObserveRateLimitDelay records the duration of a token-bucket wait.
func ObserveRateLimitDelay(d time.Duration) {
	rateLimitDelaySeconds.Observe(d.Seconds())
}

// ObserveAnalyzerDuration records one analyzer execution.
func ObserveAnalyzerDuration(analyzer string, d time.Duration) {
	analyzerDurationSeconds.WithLabelValues(analyzer).Observe(d.Seconds())
}

// IncActiveWorkers increments the active worker gauge.
func IncActiveWorkers() { activeWorkers.Inc() }

// DecActiveWorkers decrements the active worker gauge.
func DecActiveWorkers() { activeWorkers.Dec() }
