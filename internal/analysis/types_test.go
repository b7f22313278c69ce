package analysis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeverityRankOrdering(t *testing.T) {
	t.Parallel()

	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(order); i++ {
		require.Greater(t, order[i-1].Rank(), order[i].Rank())
	}
	require.False(t, Severity("WARN").Valid())
	require.True(t, SeverityMedium.Valid())
}

func TestAnalysisResultJSONRoundTrip(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	original := AnalysisResult{
		URL:          "https://example.com/",
		OverallScore: 72.5,
		Analyzers: map[string]AnalyzerResult{
			"security": {
				Score: 75,
				Findings: []Finding{{
					Analyzer:    "security",
					Category:    "HTTPS",
					Severity:    SeverityCritical,
					Message:     "page is served over plain HTTP",
					Remediation: "serve the page over HTTPS",
				}},
			},
			"mobile": {
				Score:    70,
				Findings: []Finding{{Category: "viewport", Severity: SeverityHigh, Message: "viewport missing"}},
			},
		},
		Findings: []Finding{
			{Category: "HTTPS", Severity: SeverityCritical, Message: "m1"},
			{Category: "viewport", Severity: SeverityHigh, Message: "m2"},
		},
		SeverityCounts: map[Severity]int{SeverityCritical: 1, SeverityHigh: 1},
		StartedAt:      started,
		CompletedAt:    started.Add(900 * time.Millisecond),
		Duration:       900 * time.Millisecond,
		Status:         StatusCompleted,
	}

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded AnalysisResult
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	require.Equal(t, original.OverallScore, decoded.OverallScore)
	require.Equal(t, original.TotalFindings(), decoded.TotalFindings())
	require.Equal(t, original.Status, decoded.Status)
	require.Equal(t, original.Duration, decoded.Duration)
	require.Len(t, decoded.Analyzers, 2)
	require.Equal(t, original.Analyzers["security"].Findings, decoded.Analyzers["security"].Findings)
}

func TestAnalysisResultJSONShape(t *testing.T) {
	t.Parallel()

	result := AnalysisResult{
		URL:          "https://example.com/",
		OverallScore: 88,
		Analyzers:    map[string]AnalyzerResult{"social": {Score: 88, Findings: []Finding{}}},
		Status:       StatusCompleted,
	}
	encoded, err := json.Marshal(result)
	require.NoError(t, err)

	var shape map[string]any
	require.NoError(t, json.Unmarshal(encoded, &shape))
	for _, key := range []string{"overall_score", "analyzers", "started_at", "completed_at", "duration", "status"} {
		require.Contains(t, shape, key)
	}

	analyzers, ok := shape["analyzers"].(map[string]any)
	require.True(t, ok)
	social, ok := analyzers["social"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, social, "score")
	require.Contains(t, social, "findings")
}

func TestCollectionErrorRetryable(t *testing.T) {
	t.Parallel()

	require.True(t, NewCollectionError(KindTimeout, "u", nil).Retryable())
	require.True(t, NewCollectionError(KindConnection, "u", nil).Retryable())
	require.True(t, NewHTTPStatusError("u", 502).Retryable())
	require.False(t, NewHTTPStatusError("u", 404).Retryable())
	require.False(t, NewCollectionError(KindRobotsDisallowed, "u", nil).Retryable())
}

func TestCacheEntryExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	entry := CacheEntry{ExpiresAt: now.Add(time.Minute)}
	require.False(t, entry.Expired(now))
	require.True(t, entry.Expired(now.Add(time.Minute)), "boundary instant counts as expired")
	require.True(t, entry.Expired(now.Add(2*time.Minute)))
}

func TestBatchResultCountByStatus(t *testing.T) {
	t.Parallel()

	batch := BatchResult{Results: map[string]*AnalysisResult{
		"a": {Status: StatusCompleted},
		"b": {Status: StatusCompleted},
		"c": {Status: StatusFailed},
		"d": nil,
	}}
	require.Equal(t, 2, batch.CountByStatus(StatusCompleted))
	require.Equal(t, 1, batch.CountByStatus(StatusFailed))
	require.Zero(t, batch.CountByStatus(StatusSkipped))
}
