package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Accessibility checks the structural signals assistive technology relies
// on: document language, heading hierarchy, image alternatives and link text.
type Accessibility struct{}

// NewAccessibility builds the accessibility analyzer.
func NewAccessibility() *Accessibility { return &Accessibility{} }

func (a *Accessibility) Name() string { return NameAccessibility }

func (a *Accessibility) Analyze(_ context.Context, doc *analysis.ParsedDocument, opts analysis.AnalyzerOptions) (analysis.AnalyzerResult, error) {
	var findings []analysis.Finding

	if strings.TrimSpace(doc.Language) == "" {
		findings = append(findings, analysis.Finding{
			Category:    "language",
			Severity:    analysis.SeverityMedium,
			Message:     "html element has no lang attribute",
			Remediation: `declare the document language, e.g. <html lang="en">`,
		})
	}

	findings = append(findings, headingFindings(doc.Headings)...)

	if loc, n := missingAlt(doc.Images); n > 0 {
		findings = append(findings, analysis.Finding{
			Category:    "images",
			Severity:    analysis.SeverityMedium,
			Message:     fmt.Sprintf("%d images are missing alt text", n),
			Location:    loc,
			Remediation: "give every informative image a descriptive alt attribute",
		})
	}

	if loc, n := emptyLinkText(doc.Links); n > 0 {
		findings = append(findings, analysis.Finding{
			Category:    "links",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("%d links have no discernible text", n),
			Location:    loc,
			Remediation: "give links visible text or an aria-label",
		})
	}

	return result(NameAccessibility, findings, opts), nil
}

func headingFindings(headings []analysis.Heading) []analysis.Finding {
	var findings []analysis.Finding

	h1s := 0
	for _, h := range headings {
		if h.Level == 1 {
			h1s++
		}
	}
	switch {
	case h1s == 0:
		findings = append(findings, analysis.Finding{
			Category:    "headings",
			Severity:    analysis.SeverityMedium,
			Message:     "page has no h1 heading",
			Remediation: "add a single h1 describing the page",
		})
	case h1s > 1:
		findings = append(findings, analysis.Finding{
			Category:    "headings",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("page has %d h1 headings", h1s),
			Remediation: "keep a single h1 per page",
		})
	}

	prev := 0
	for _, h := range headings {
		if prev > 0 && h.Level > prev+1 {
			findings = append(findings, analysis.Finding{
				Category:    "headings",
				Severity:    analysis.SeverityLow,
				Message:     fmt.Sprintf("heading level jumps from h%d to h%d", prev, h.Level),
				Location:    h.Text,
				Remediation: "do not skip heading levels",
			})
			break
		}
		prev = h.Level
	}

	return findings
}

func missingAlt(images []analysis.Image) (string, int) {
	first, n := "", 0
	for _, img := range images {
		if strings.TrimSpace(img.Alt) == "" {
			if first == "" {
				first = img.Src
			}
			n++
		}
	}
	return first, n
}

func emptyLinkText(links []analysis.Link) (string, int) {
	first, n := "", 0
	for _, l := range links {
		if strings.TrimSpace(l.Text) == "" {
			if first == "" {
				first = l.URL
			}
			n++
		}
	}
	return first, n
}
