package analyzer

import (
	"context"
	"strings"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Mobile checks viewport configuration for small-screen rendering.
type Mobile struct{}

// NewMobile builds the mobile analyzer.
func NewMobile() *Mobile { return &Mobile{} }

func (a *Mobile) Name() string { return NameMobile }

func (a *Mobile) Analyze(_ context.Context, doc *analysis.ParsedDocument, opts analysis.AnalyzerOptions) (analysis.AnalyzerResult, error) {
	var findings []analysis.Finding

	viewport := strings.ToLower(doc.MetaContent("viewport"))
	switch {
	case viewport == "":
		findings = append(findings, analysis.Finding{
			Category:    "viewport",
			Severity:    analysis.SeverityHigh,
			Message:     "viewport meta tag is missing",
			Remediation: `add <meta name="viewport" content="width=device-width, initial-scale=1">`,
		})
	case !strings.Contains(viewport, "width=device-width"):
		findings = append(findings, analysis.Finding{
			Category:    "viewport",
			Severity:    analysis.SeverityMedium,
			Message:     "viewport does not adapt to device width",
			Location:    viewport,
			Remediation: "include width=device-width in the viewport",
		})
	}

	if strings.Contains(viewport, "user-scalable=no") || strings.Contains(viewport, "maximum-scale=1") {
		findings = append(findings, analysis.Finding{
			Category:    "viewport",
			Severity:    analysis.SeverityLow,
			Message:     "viewport disables pinch zoom",
			Location:    viewport,
			Remediation: "allow users to zoom",
		})
	}

	return result(NameMobile, findings, opts), nil
}
