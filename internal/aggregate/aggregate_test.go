package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitelens/sitelens/internal/analysis"
)

func TestMergeEqualWeights(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	completed := started.Add(2 * time.Second)

	results := []analysis.AnalyzerResult{
		{Analyzer: "security", Score: 80},
		{Analyzer: "mobile", Score: 60},
	}

	out := New(nil).Merge("https://example.com/", results, started, completed)
	require.InDelta(t, 70, out.OverallScore, 0.001)
	require.Equal(t, analysis.StatusCompleted, out.Status)
	require.Equal(t, 2*time.Second, out.Duration)
	require.Len(t, out.Analyzers, 2)
}

func TestMergeConfiguredWeights(t *testing.T) {
	t.Parallel()

	results := []analysis.AnalyzerResult{
		{Analyzer: "security", Score: 100},
		{Analyzer: "social", Score: 0},
	}
	agg := New(map[string]float64{"security": 3, "social": 1})

	out := agg.Merge("u", results, time.Now(), time.Now())
	require.InDelta(t, 75, out.OverallScore, 0.001)
}

func TestMergeExcludesMissingAnalyzers(t *testing.T) {
	t.Parallel()

	// Only one of several requested analyzers completed; the average covers
	// it alone instead of treating the absent ones as zero.
	results := []analysis.AnalyzerResult{{Analyzer: "security", Score: 90}}

	out := New(nil).Merge("u", results, time.Now(), time.Now())
	require.InDelta(t, 90, out.OverallScore, 0.001)
}

func TestMergeNoResults(t *testing.T) {
	t.Parallel()

	out := New(nil).Merge("u", nil, time.Now(), time.Now())
	require.Zero(t, out.OverallScore)
	require.Empty(t, out.Analyzers)
}

func TestMergeCountsSeverities(t *testing.T) {
	t.Parallel()

	results := []analysis.AnalyzerResult{
		{Analyzer: "security", Score: 75, Findings: []analysis.Finding{
			{Severity: analysis.SeverityCritical},
			{Severity: analysis.SeverityLow},
		}},
		{Analyzer: "seo", Score: 92, Findings: []analysis.Finding{
			{Severity: analysis.SeverityLow},
		}},
	}

	out := New(nil).Merge("u", results, time.Now(), time.Now())
	require.Equal(t, 3, out.TotalFindings())
	require.Equal(t, 1, out.SeverityCounts[analysis.SeverityCritical])
	require.Equal(t, 2, out.SeverityCounts[analysis.SeverityLow])
}

func TestRecommendOrdersBySeverityThenEffort(t *testing.T) {
	t.Parallel()

	findings := []analysis.Finding{
		{Severity: analysis.SeverityLow, Message: "low"},
		{Severity: analysis.SeverityCritical, Message: "crit-vague"},
		{Severity: analysis.SeverityCritical, Message: "crit-cheap", Remediation: "fix"},
		{Severity: analysis.SeverityCritical, Message: "crit-costly", Remediation: "rearchitect everything"},
		{Severity: analysis.SeverityHigh, Message: "high", Remediation: "x"},
		{Severity: analysis.SeverityInfo, Message: "info"},
	}

	got := Recommend(findings, 0)
	messages := make([]string, len(got))
	for i, f := range got {
		messages[i] = f.Message
	}
	require.Equal(t, []string{"crit-cheap", "crit-costly", "crit-vague", "high", "low"}, messages)
}

func TestRecommendHonorsLimit(t *testing.T) {
	t.Parallel()

	findings := make([]analysis.Finding, 20)
	for i := range findings {
		findings[i] = analysis.Finding{Severity: analysis.SeverityMedium}
	}
	require.Len(t, Recommend(findings, 5), 5)
}

func TestRecommendDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	findings := []analysis.Finding{
		{Severity: analysis.SeverityLow, Message: "first"},
		{Severity: analysis.SeverityCritical, Message: "second"},
	}
	_ = Recommend(findings, 0)
	require.Equal(t, "first", findings[0].Message)
}
