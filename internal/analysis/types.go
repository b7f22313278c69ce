package analysis

import (
	"net/http"
	"time"
)

// Severity classifies how serious a finding is.
type Severity string

// Severity values, ordered from most to least serious.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Rank returns the sort weight of a severity, higher is more serious.
// Unknown severities rank below INFO.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the five closed severity values.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Status represents the outcome of analyzing one URL.
type Status string

// Per-URL status values.
const (
	StatusCompleted Status = "COMPLETED"
	StatusPartial   Status = "PARTIAL"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
)

// AnalysisRequest describes one URL to analyze. Immutable once submitted.
type AnalysisRequest struct {
	URL       string           `json:"url"`
	Analyzers []string         `json:"analyzers"`
	Collector CollectorOptions `json:"collector"`
	Processor ProcessorOptions `json:"processor"`
	Analyzer  AnalyzerOptions  `json:"analyzer"`
}

// RawDocument is the fetched page before parsing. It is owned by the
// collector call that produced it and consumed once by the processor.
type RawDocument struct {
	URL          string
	FinalURL     string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	FetchedAt    time.Time
	Duration     time.Duration
	UsedHeadless bool
}

// Heading is one entry of the document heading tree.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is an anchor found on the page, resolved to an absolute URL.
type Link struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Rel      string `json:"rel,omitempty"`
	External bool   `json:"external"`
}

// Image is an <img> found on the page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Script is a <script> found on the page.
type Script struct {
	Src    string `json:"src,omitempty"`
	Inline bool   `json:"inline"`
	Type   string `json:"type,omitempty"`
}

// ParsedDocument is the normalized structural view of a fetched page. It is
// shared read-only across all analyzers for one request; analyzers must not
// mutate it.
type ParsedDocument struct {
	URL            string
	FinalURL       string
	StatusCode     int
	Headers        http.Header
	Title          string
	Language       string
	Meta           map[string]string
	Headings       []Heading
	Links          []Link
	Images         []Image
	Scripts        []Script
	StructuredData []string
	Text           string
	HTMLSize       int
	FetchedAt      time.Time
	FetchDuration  time.Duration
	UsedHeadless   bool

	// Warnings records structural problems encountered during best-effort
	// parsing. Parsing never fails outright.
	Warnings []string
}

// IsHTTPS reports whether the document was served over TLS, following the
// final URL after redirects.
func (d *ParsedDocument) IsHTTPS() bool {
	u := d.FinalURL
	if u == "" {
		u = d.URL
	}
	return len(u) >= 8 && u[:8] == "https://"
}

// MetaContent returns the content of a named meta tag, empty if absent.
func (d *ParsedDocument) MetaContent(name string) string {
	if d.Meta == nil {
		return ""
	}
	return d.Meta[name]
}

// Finding is one discrete issue reported by an analyzer. Immutable once
// created.
type Finding struct {
	Analyzer    string   `json:"analyzer,omitempty"`
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Location    string   `json:"location,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
}

// AnalyzerResult is the scored output of one analyzer for one document.
type AnalyzerResult struct {
	Analyzer string        `json:"-"`
	Score    float64       `json:"score"`
	Findings []Finding     `json:"findings"`
	Duration time.Duration `json:"duration,omitempty"`
}

// AnalysisResult is the merged outcome for one URL, assembled exactly once
// by the aggregator after all scheduled analyzers finish.
type AnalysisResult struct {
	URL             string                    `json:"url"`
	OverallScore    float64                   `json:"overall_score"`
	Analyzers       map[string]AnalyzerResult `json:"analyzers"`
	Findings        []Finding                 `json:"findings,omitempty"`
	SeverityCounts  map[Severity]int          `json:"severity_counts,omitempty"`
	Recommendations []Finding                 `json:"recommendations,omitempty"`
	StartedAt       time.Time                 `json:"started_at"`
	CompletedAt     time.Time                 `json:"completed_at"`
	Duration        time.Duration             `json:"duration"`
	Status          Status                    `json:"status"`
	Error           string                    `json:"error,omitempty"`
}

// TotalFindings returns the number of aggregated findings.
func (r *AnalysisResult) TotalFindings() int {
	return len(r.Findings)
}

// BatchResult collects per-URL outcomes for a batch run. Results are keyed
// by URL; no ordering between completions is guaranteed.
type BatchResult struct {
	BatchID     string                     `json:"batch_id"`
	Results     map[string]*AnalysisResult `json:"results"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt time.Time                  `json:"completed_at"`
}

// CountByStatus returns how many URLs ended in the given status.
func (b *BatchResult) CountByStatus(s Status) int {
	n := 0
	for _, r := range b.Results {
		if r != nil && r.Status == s {
			n++
		}
	}
	return n
}

// CacheEntry wraps a cached AnalysisResult. Entries are immutable and
// replaced wholesale on refresh.
type CacheEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Payload     *AnalysisResult `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
