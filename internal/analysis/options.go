package analysis

import "time"

// CollectorOptions controls how pages are fetched. These structs are
// decoupled from Viper so the collector can be constructed and tested
// without the config loader.
type CollectorOptions struct {
	UserAgent         string            `json:"user_agent"`
	RequestsPerSecond float64           `json:"requests_per_second"`
	Burst             int               `json:"burst"`
	Timeout           time.Duration     `json:"timeout"`
	MaxRetries        int               `json:"max_retries"`
	RetryDelay        time.Duration     `json:"retry_delay"`
	MaxRetryDelay     time.Duration     `json:"max_retry_delay"`
	Headers           map[string]string `json:"headers,omitempty"`
	VerifySSL         bool              `json:"verify_ssl"`
	RespectRobots     bool              `json:"respect_robots"`
	HeadlessAllowed   bool              `json:"headless_allowed"`
	ArchiveBody       bool              `json:"archive_body"`
}

// DefaultCollectorOptions returns the collector defaults.
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		UserAgent:         "sitelens-bot/0.1",
		RequestsPerSecond: 2.0,
		Burst:             1,
		Timeout:           15 * time.Second,
		MaxRetries:        2,
		RetryDelay:        250 * time.Millisecond,
		MaxRetryDelay:     5 * time.Second,
		VerifySSL:         true,
		RespectRobots:     true,
	}
}

// ProcessorOptions controls document normalization.
type ProcessorOptions struct {
	CleanWhitespace bool `json:"clean_whitespace"`
	NormalizeURLs   bool `json:"normalize_urls"`
	RemoveComments  bool `json:"remove_comments"`
	ExtractMetadata bool `json:"extract_metadata"`
}

// DefaultProcessorOptions returns the processor defaults.
func DefaultProcessorOptions() ProcessorOptions {
	return ProcessorOptions{
		CleanWhitespace: true,
		NormalizeURLs:   true,
		RemoveComments:  true,
		ExtractMetadata: true,
	}
}

// SeverityWeights maps each severity to its score deduction. The table is
// configuration so operators can tune strictness.
type SeverityWeights map[Severity]float64

// DefaultSeverityWeights returns the default deduction table.
func DefaultSeverityWeights() SeverityWeights {
	return SeverityWeights{
		SeverityCritical: 25,
		SeverityHigh:     15,
		SeverityMedium:   8,
		SeverityLow:      3,
		SeverityInfo:     0,
	}
}

// Deduction returns the penalty for one finding of severity s.
func (w SeverityWeights) Deduction(s Severity) float64 {
	if w == nil {
		return DefaultSeverityWeights().Deduction(s)
	}
	return w[s]
}

// AnalyzerOptions carries the tunables consumed by the concrete analyzers
// plus the scoring tables. Validated once at construction, never per call.
type AnalyzerOptions struct {
	SeverityWeights SeverityWeights    `json:"severity_weights,omitempty"`
	OverallWeights  map[string]float64 `json:"overall_weights,omitempty"`

	TitleMinLength    int     `json:"title_min_length"`
	TitleMaxLength    int     `json:"title_max_length"`
	MetaDescMinLength int     `json:"meta_desc_min_length"`
	MetaDescMaxLength int     `json:"meta_desc_max_length"`
	MaxPageBytes      int     `json:"max_page_bytes"`
	MaxScripts        int     `json:"max_scripts"`
	MaxImages         int     `json:"max_images"`
	MinWordCount      int     `json:"min_word_count"`
	KeywordDensityMax float64 `json:"keyword_density_max"`
}

// DefaultAnalyzerOptions returns the analyzer defaults.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		SeverityWeights:   DefaultSeverityWeights(),
		TitleMinLength:    10,
		TitleMaxLength:    60,
		MetaDescMinLength: 50,
		MetaDescMaxLength: 160,
		MaxPageBytes:      2 << 20,
		MaxScripts:        25,
		MaxImages:         50,
		MinWordCount:      300,
		KeywordDensityMax: 0.05,
	}
}
