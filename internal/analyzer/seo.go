package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitelens/sitelens/internal/analysis"
)

// SEO checks on-page content signals: title and meta description length,
// body length and keyword stuffing.
type SEO struct{}

// NewSEO builds the SEO analyzer.
func NewSEO() *SEO { return &SEO{} }

func (a *SEO) Name() string { return NameSEO }

func (a *SEO) Analyze(_ context.Context, doc *analysis.ParsedDocument, opts analysis.AnalyzerOptions) (analysis.AnalyzerResult, error) {
	var findings []analysis.Finding

	title := strings.TrimSpace(doc.Title)
	switch {
	case title == "":
		findings = append(findings, analysis.Finding{
			Category:    "title",
			Severity:    analysis.SeverityHigh,
			Message:     "page has no title",
			Remediation: "add a descriptive <title>",
		})
	case len(title) < opts.TitleMinLength:
		findings = append(findings, analysis.Finding{
			Category:    "title",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("title is %d characters, shorter than %d", len(title), opts.TitleMinLength),
			Location:    title,
			Remediation: "expand the title to describe the page",
		})
	case len(title) > opts.TitleMaxLength:
		findings = append(findings, analysis.Finding{
			Category:    "title",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("title is %d characters, longer than %d", len(title), opts.TitleMaxLength),
			Location:    title,
			Remediation: "shorten the title so search results do not truncate it",
		})
	}

	desc := strings.TrimSpace(doc.MetaContent("description"))
	switch {
	case desc == "":
		findings = append(findings, analysis.Finding{
			Category:    "meta-description",
			Severity:    analysis.SeverityMedium,
			Message:     "meta description is missing",
			Remediation: "add a meta description summarizing the page",
		})
	case len(desc) < opts.MetaDescMinLength:
		findings = append(findings, analysis.Finding{
			Category:    "meta-description",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("meta description is %d characters, shorter than %d", len(desc), opts.MetaDescMinLength),
			Remediation: "expand the meta description",
		})
	case len(desc) > opts.MetaDescMaxLength:
		findings = append(findings, analysis.Finding{
			Category:    "meta-description",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("meta description is %d characters, longer than %d", len(desc), opts.MetaDescMaxLength),
			Remediation: "shorten the meta description",
		})
	}

	words := strings.Fields(doc.Text)
	if opts.MinWordCount > 0 && len(words) < opts.MinWordCount {
		findings = append(findings, analysis.Finding{
			Category:    "content",
			Severity:    analysis.SeverityLow,
			Message:     fmt.Sprintf("page body has %d words, below %d", len(words), opts.MinWordCount),
			Remediation: "add substantive content",
		})
	}
	if word, density := topKeywordDensity(words); opts.KeywordDensityMax > 0 && density > opts.KeywordDensityMax {
		findings = append(findings, analysis.Finding{
			Category:    "content",
			Severity:    analysis.SeverityMedium,
			Message:     fmt.Sprintf("keyword %q makes up %.1f%% of the body text", word, density*100),
			Remediation: "reduce keyword repetition",
		})
	}

	return result(NameSEO, findings, opts), nil
}

// topKeywordDensity returns the most frequent word of four or more letters
// and its share of the total word count.
func topKeywordDensity(words []string) (string, float64) {
	if len(words) == 0 {
		return "", 0
	}
	counts := map[string]int{}
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,;:!?\"'()"))
		if len(w) >= 4 {
			counts[w]++
		}
	}
	top, topN := "", 0
	for w, n := range counts {
		if n > topN || (n == topN && w < top) {
			top, topN = w, n
		}
	}
	return top, float64(topN) / float64(len(words))
}
