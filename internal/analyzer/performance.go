package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/sitelens/sitelens/internal/analysis"
)

// slowFetchThreshold flags pages whose server response alone exceeded it.
const slowFetchThreshold = 2 * time.Second

// Performance inspects page weight, resource counts and caching signals.
type Performance struct{}

// NewPerformance builds the performance analyzer.
func NewPerformance() *Performance { return &Performance{} }

func (a *Performance) Name() string { return NamePerformance }

func (a *Performance) Analyze(_ context.Context, doc *analysis.ParsedDocument, opts analysis.AnalyzerOptions) (analysis.AnalyzerResult, error) {
	var findings []analysis.Finding

	if opts.MaxPageBytes > 0 && doc.HTMLSize > opts.MaxPageBytes {
		findings = append(findings, analysis.Finding{
			Category:    "page-weight",
			Severity:    analysis.SeverityMedium,
			Message:     fmt.Sprintf("HTML document is %d bytes, above the %d byte budget", doc.HTMLSize, opts.MaxPageBytes),
			Remediation: "trim markup, defer non-critical content",
		})
	}

	if opts.MaxScripts > 0 && len(doc.Scripts) > opts.MaxScripts {
		findings = append(findings, analysis.Finding{
			Category:    "resources",
			Severity:    analysis.SeverityMedium,
			Message:     fmt.Sprintf("page references %d scripts, above the budget of %d", len(doc.Scripts), opts.MaxScripts),
			Remediation: "bundle or lazy-load scripts",
		})
	}
	if opts.MaxImages > 0 && len(doc.Images) > opts.MaxImages {
		findings = append(findings, analysis.Finding{
			Category:    "resources",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("page references %d images, above the budget of %d", len(doc.Images), opts.MaxImages),
			Remediation: "lazy-load below-the-fold images",
		})
	}

	if doc.Headers.Get("Content-Encoding") == "" && doc.HTMLSize > 16<<10 {
		findings = append(findings, analysis.Finding{
			Category:    "compression",
			Severity:    analysis.SeverityLow,
			Message:     "response is not compressed",
			Remediation: "enable gzip or brotli compression",
		})
	}
	if doc.Headers.Get("Cache-Control") == "" {
		findings = append(findings, analysis.Finding{
			Category:    "caching",
			Severity:    analysis.SeverityLow,
			Message:     "Cache-Control header is missing",
			Remediation: "set an explicit caching policy",
		})
	}

	if doc.FetchDuration > slowFetchThreshold {
		findings = append(findings, analysis.Finding{
			Category:    "latency",
			Severity:    analysis.SeverityMedium,
			Message:     fmt.Sprintf("server responded in %s", doc.FetchDuration.Round(time.Millisecond)),
			Remediation: "investigate server-side rendering time",
		})
	}

	return result(NamePerformance, findings, opts), nil
}
