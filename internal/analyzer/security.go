package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Security inspects transport security and response-header hygiene.
type Security struct{}

// NewSecurity builds the security analyzer.
func NewSecurity() *Security { return &Security{} }

func (a *Security) Name() string { return NameSecurity }

func (a *Security) Analyze(_ context.Context, doc *analysis.ParsedDocument, opts analysis.AnalyzerOptions) (analysis.AnalyzerResult, error) {
	var findings []analysis.Finding

	https := doc.IsHTTPS()
	if !https {
		findings = append(findings, analysis.Finding{
			Category:    "HTTPS",
			Severity:    analysis.SeverityCritical,
			Message:     "page is served over plain HTTP",
			Remediation: "serve the page over HTTPS and redirect HTTP traffic",
		})
	}

	if doc.Headers.Get("Content-Security-Policy") == "" {
		findings = append(findings, analysis.Finding{
			Category:    "headers",
			Severity:    analysis.SeverityMedium,
			Message:     "Content-Security-Policy header is missing",
			Remediation: "define a Content-Security-Policy restricting script and frame sources",
		})
	}
	if https && doc.Headers.Get("Strict-Transport-Security") == "" {
		findings = append(findings, analysis.Finding{
			Category:    "headers",
			Severity:    analysis.SeverityMedium,
			Message:     "Strict-Transport-Security header is missing",
			Remediation: "send Strict-Transport-Security with a max-age of at least one year",
		})
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy"} {
		if doc.Headers.Get(h) == "" {
			findings = append(findings, analysis.Finding{
				Category:    "headers",
				Severity:    analysis.SeverityLow,
				Message:     fmt.Sprintf("%s header is missing", h),
				Remediation: fmt.Sprintf("send the %s header", h),
			})
		}
	}

	if server := doc.Headers.Get("Server"); strings.Contains(server, "/") {
		findings = append(findings, analysis.Finding{
			Category:    "disclosure",
			Severity:    analysis.SeverityLow,
			Message:     "Server header discloses software version",
			Location:    server,
			Remediation: "strip the version from the Server header",
		})
	}

	if https {
		if loc, n := mixedContent(doc); n > 0 {
			findings = append(findings, analysis.Finding{
				Category:    "mixed-content",
				Severity:    analysis.SeverityHigh,
				Message:     fmt.Sprintf("%d subresources load over plain HTTP", n),
				Location:    loc,
				Remediation: "serve all scripts and images over HTTPS",
			})
		}
	}

	return result(NameSecurity, findings, opts), nil
}

// mixedContent counts http:// subresources on an HTTPS page and returns the
// first offender for the finding location.
func mixedContent(doc *analysis.ParsedDocument) (string, int) {
	first, n := "", 0
	note := func(u string) {
		if strings.HasPrefix(u, "http://") {
			if first == "" {
				first = u
			}
			n++
		}
	}
	for _, img := range doc.Images {
		note(img.Src)
	}
	for _, s := range doc.Scripts {
		note(s.Src)
	}
	return first, n
}
