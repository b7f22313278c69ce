// Package analyzer hosts the built-in page analyzers and the registry that
// resolves analyzer names at request time. All analyzers are pure functions
// of (document, options) so they can run concurrently over the same parsed
// document and their output can be cached by fingerprint.
package analyzer

import (
	"github.com/sitelens/sitelens/internal/analysis"
)

// Built-in analyzer names.
const (
	NameSEO           = "seo"
	NameSecurity      = "security"
	NamePerformance   = "performance"
	NameSchema        = "schema"
	NameAccessibility = "accessibility"
	NameMobile        = "mobile"
	NameSocial        = "social"
)

// score starts every document at 100 and subtracts the configured weight for
// each finding, clamped to [0, 100]. Identical findings always produce an
// identical score.
func score(findings []analysis.Finding, weights analysis.SeverityWeights) float64 {
	s := 100.0
	for _, f := range findings {
		s -= weights.Deduction(f.Severity)
	}
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// result assembles an AnalyzerResult for the named analyzer, stamping the
// analyzer name onto every finding.
func result(name string, findings []analysis.Finding, opts analysis.AnalyzerOptions) analysis.AnalyzerResult {
	for i := range findings {
		findings[i].Analyzer = name
	}
	if findings == nil {
		findings = []analysis.Finding{}
	}
	return analysis.AnalyzerResult{
		Analyzer: name,
		Score:    score(findings, opts.SeverityWeights),
		Findings: findings,
	}
}
