package analyzer

import (
	"context"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Social checks the Open Graph and Twitter card tags that control how the
// page renders when shared.
type Social struct{}

// NewSocial builds the social analyzer.
func NewSocial() *Social { return &Social{} }

func (a *Social) Name() string { return NameSocial }

func (a *Social) Analyze(_ context.Context, doc *analysis.ParsedDocument, opts analysis.AnalyzerOptions) (analysis.AnalyzerResult, error) {
	var findings []analysis.Finding

	checks := []struct {
		tag         string
		severity    analysis.Severity
		remediation string
	}{
		{"og:title", analysis.SeverityMedium, "add an og:title meta property"},
		{"og:image", analysis.SeverityMedium, "add an og:image meta property with an absolute URL"},
		{"og:description", analysis.SeverityLow, "add an og:description meta property"},
		{"twitter:card", analysis.SeverityLow, `add <meta name="twitter:card" content="summary_large_image">`},
	}
	for _, c := range checks {
		if doc.MetaContent(c.tag) == "" {
			findings = append(findings, analysis.Finding{
				Category:    "social-tags",
				Severity:    c.severity,
				Message:     c.tag + " is missing",
				Remediation: c.remediation,
			})
		}
	}

	return result(NameSocial, findings, opts), nil
}
