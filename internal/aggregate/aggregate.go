// Package aggregate merges per-analyzer results into one scored outcome.
package aggregate

import (
	"sort"
	"time"

	"github.com/sitelens/sitelens/internal/analysis"
)

// maxRecommendations bounds the prioritized list; the full finding set is
// still carried on the result.
const maxRecommendations = 10

// Aggregator assembles the final AnalysisResult exactly once per request.
type Aggregator struct {
	weights map[string]float64
}

// New builds an Aggregator. weights maps analyzer name to its share of the
// overall score; analyzers without an entry weigh 1. A nil map means equal
// weighting.
func New(weights map[string]float64) *Aggregator {
	return &Aggregator{weights: weights}
}

// Merge combines the completed analyzer results for one URL. The overall
// score is a weighted average over the analyzers that actually produced a
// result: analyzers that failed or were not scheduled are excluded, not
// counted as zero.
func (a *Aggregator) Merge(url string, results []analysis.AnalyzerResult, startedAt, completedAt time.Time) *analysis.AnalysisResult {
	out := &analysis.AnalysisResult{
		URL:            url,
		Analyzers:      make(map[string]analysis.AnalyzerResult, len(results)),
		SeverityCounts: map[analysis.Severity]int{},
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		Duration:       completedAt.Sub(startedAt),
		Status:         analysis.StatusCompleted,
	}

	var sum, weightSum float64
	for _, r := range results {
		out.Analyzers[r.Analyzer] = r
		w := a.weight(r.Analyzer)
		sum += r.Score * w
		weightSum += w

		for _, f := range r.Findings {
			out.Findings = append(out.Findings, f)
			out.SeverityCounts[f.Severity]++
		}
	}
	if weightSum > 0 {
		out.OverallScore = sum / weightSum
	}

	out.Recommendations = Recommend(out.Findings, maxRecommendations)
	return out
}

func (a *Aggregator) weight(name string) float64 {
	if a.weights == nil {
		return 1
	}
	if w, ok := a.weights[name]; ok && w > 0 {
		return w
	}
	return 1
}

// Recommend returns the top findings sorted by severity descending. Ties
// break on remediation effort: findings that name a concrete remediation
// rank above those that do not, then shorter remediations first as a proxy
// for cheaper fixes. The input slice is not modified.
func Recommend(findings []analysis.Finding, limit int) []analysis.Finding {
	ranked := make([]analysis.Finding, len(findings))
	copy(ranked, findings)

	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].Severity.Rank(), ranked[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		ai, aj := actionability(ranked[i]), actionability(ranked[j])
		if ai != aj {
			return ai > aj
		}
		return len(ranked[i].Remediation) < len(ranked[j].Remediation)
	})

	// INFO findings are context, not work items.
	n := 0
	for _, f := range ranked {
		if f.Severity == analysis.SeverityInfo {
			break
		}
		n++
	}
	ranked = ranked[:n]

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func actionability(f analysis.Finding) int {
	if f.Remediation != "" {
		return 1
	}
	return 0
}
