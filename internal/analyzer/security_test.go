package analyzer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitelens/sitelens/internal/analysis"
)

// hardenedHeaders carries every header the security analyzer looks for, so
// tests can isolate individual checks.
func hardenedHeaders() http.Header {
	return http.Header{
		"Content-Security-Policy":   []string{"default-src 'self'"},
		"Strict-Transport-Security": []string{"max-age=63072000"},
		"X-Content-Type-Options":    []string{"nosniff"},
		"X-Frame-Options":           []string{"DENY"},
		"Referrer-Policy":           []string{"no-referrer"},
	}
}

func TestSecurityPlainHTTPScoresCriticalDeduction(t *testing.T) {
	t.Parallel()

	doc := &analysis.ParsedDocument{
		URL:      "http://example.com/",
		FinalURL: "http://example.com/",
		Headers:  hardenedHeaders(),
	}

	res, err := NewSecurity().Analyze(context.Background(), doc, analysis.DefaultAnalyzerOptions())
	require.NoError(t, err)

	require.Len(t, res.Findings, 1)
	require.Equal(t, "HTTPS", res.Findings[0].Category)
	require.Equal(t, analysis.SeverityCritical, res.Findings[0].Severity)

	weights := analysis.DefaultSeverityWeights()
	require.Equal(t, 100-weights[analysis.SeverityCritical], res.Score)
}

func TestSecurityHardenedHTTPSIsClean(t *testing.T) {
	t.Parallel()

	doc := &analysis.ParsedDocument{
		URL:      "https://example.com/",
		FinalURL: "https://example.com/",
		Headers:  hardenedHeaders(),
	}

	res, err := NewSecurity().Analyze(context.Background(), doc, analysis.DefaultAnalyzerOptions())
	require.NoError(t, err)
	require.Empty(t, res.Findings)
	require.EqualValues(t, 100, res.Score)
}

func TestSecurityMissingHeaders(t *testing.T) {
	t.Parallel()

	doc := &analysis.ParsedDocument{
		URL:      "https://example.com/",
		FinalURL: "https://example.com/",
		Headers:  http.Header{},
	}

	res, err := NewSecurity().Analyze(context.Background(), doc, analysis.DefaultAnalyzerOptions())
	require.NoError(t, err)

	categories := map[string]int{}
	for _, f := range res.Findings {
		categories[f.Category]++
	}
	require.Equal(t, 5, categories["headers"], "CSP, HSTS and three hardening headers")
	require.Zero(t, categories["HTTPS"])
}

func TestSecurityMixedContent(t *testing.T) {
	t.Parallel()

	doc := &analysis.ParsedDocument{
		URL:      "https://example.com/",
		FinalURL: "https://example.com/",
		Headers:  hardenedHeaders(),
		Images:   []analysis.Image{{Src: "http://cdn.example.com/a.png"}},
		Scripts:  []analysis.Script{{Src: "http://cdn.example.com/a.js"}},
	}

	res, err := NewSecurity().Analyze(context.Background(), doc, analysis.DefaultAnalyzerOptions())
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	require.Equal(t, "mixed-content", res.Findings[0].Category)
	require.Equal(t, analysis.SeverityHigh, res.Findings[0].Severity)
	require.Equal(t, "http://cdn.example.com/a.png", res.Findings[0].Location)
}

func TestSecurityServerVersionDisclosure(t *testing.T) {
	t.Parallel()

	headers := hardenedHeaders()
	headers.Set("Server", "nginx/1.25.3")
	doc := &analysis.ParsedDocument{
		URL:      "https://example.com/",
		FinalURL: "https://example.com/",
		Headers:  headers,
	}

	res, err := NewSecurity().Analyze(context.Background(), doc, analysis.DefaultAnalyzerOptions())
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	require.Equal(t, "disclosure", res.Findings[0].Category)
}
