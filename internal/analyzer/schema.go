package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Schema validates JSON-LD structured data blocks.
type Schema struct{}

// NewSchema builds the structured-data analyzer.
func NewSchema() *Schema { return &Schema{} }

func (a *Schema) Name() string { return NameSchema }

func (a *Schema) Analyze(_ context.Context, doc *analysis.ParsedDocument, opts analysis.AnalyzerOptions) (analysis.AnalyzerResult, error) {
	var findings []analysis.Finding

	if len(doc.StructuredData) == 0 {
		findings = append(findings, analysis.Finding{
			Category:    "structured-data",
			Severity:    analysis.SeverityMedium,
			Message:     "no JSON-LD structured data found",
			Remediation: "add a schema.org JSON-LD block describing the page",
		})
		return result(NameSchema, findings, opts), nil
	}

	for i, block := range doc.StructuredData {
		loc := blockLocation(i)
		var parsed any
		if err := json.Unmarshal([]byte(block), &parsed); err != nil {
			findings = append(findings, analysis.Finding{
				Category:    "structured-data",
				Severity:    analysis.SeverityHigh,
				Message:     "JSON-LD block is not valid JSON",
				Location:    loc,
				Remediation: "fix the JSON syntax of the ld+json script",
			})
			continue
		}
		for _, obj := range flattenLD(parsed) {
			if _, ok := obj["@type"]; !ok {
				findings = append(findings, analysis.Finding{
					Category:    "structured-data",
					Severity:    analysis.SeverityLow,
					Message:     "JSON-LD object is missing @type",
					Location:    loc,
					Remediation: "declare a schema.org @type on every entity",
				})
			}
			if _, ok := obj["@context"]; !ok {
				findings = append(findings, analysis.Finding{
					Category:    "structured-data",
					Severity:    analysis.SeverityLow,
					Message:     "JSON-LD object is missing @context",
					Location:    loc,
					Remediation: `set "@context": "https://schema.org"`,
				})
			}
		}
	}

	return result(NameSchema, findings, opts), nil
}

func blockLocation(i int) string {
	return fmt.Sprintf("ld+json block %d", i+1)
}

// flattenLD normalizes a decoded JSON-LD payload to its top-level objects.
// A top-level array is treated as a list of entities.
func flattenLD(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		var out []map[string]any
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	default:
		return nil
	}
}
