// Package config loads and validates engine configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Config captures all engine configuration knobs loaded via Viper.
type Config struct {
	Collector CollectorConfig `mapstructure:"collector"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CollectorConfig governs fetch behavior.
type CollectorConfig struct {
	UserAgent         string            `mapstructure:"user_agent"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second"`
	Burst             int               `mapstructure:"burst"`
	TimeoutSeconds    int               `mapstructure:"timeout_seconds"`
	MaxRetries        int               `mapstructure:"max_retries"`
	RetryDelayMs      int               `mapstructure:"retry_delay_ms"`
	MaxRetryDelayMs   int               `mapstructure:"max_retry_delay_ms"`
	Headers           map[string]string `mapstructure:"headers"`
	VerifySSL         bool              `mapstructure:"verify_ssl"`
	RespectRobots     bool              `mapstructure:"respect_robots"`
	HeadlessAllowed   bool              `mapstructure:"headless_allowed"`
	ArchiveBody       bool              `mapstructure:"archive_body"`
}

// ProcessorConfig governs document normalization.
type ProcessorConfig struct {
	CleanWhitespace bool `mapstructure:"clean_whitespace"`
	NormalizeURLs   bool `mapstructure:"normalize_urls"`
	RemoveComments  bool `mapstructure:"remove_comments"`
	ExtractMetadata bool `mapstructure:"extract_metadata"`
}

// AnalyzerConfig carries scoring tables and per-analyzer tunables.
type AnalyzerConfig struct {
	Enabled           []string           `mapstructure:"enabled"`
	SeverityWeights   map[string]float64 `mapstructure:"severity_weights"`
	OverallWeights    map[string]float64 `mapstructure:"overall_weights"`
	TitleMinLength    int                `mapstructure:"title_min_length"`
	TitleMaxLength    int                `mapstructure:"title_max_length"`
	MetaDescMinLength int                `mapstructure:"meta_desc_min_length"`
	MetaDescMaxLength int                `mapstructure:"meta_desc_max_length"`
	MaxPageBytes      int                `mapstructure:"max_page_bytes"`
	MaxScripts        int                `mapstructure:"max_scripts"`
	MaxImages         int                `mapstructure:"max_images"`
	MinWordCount      int                `mapstructure:"min_word_count"`
	KeywordDensityMax float64            `mapstructure:"keyword_density_max"`
}

// CacheConfig controls result memoization.
type CacheConfig struct {
	TTLSeconds        int    `mapstructure:"ttl_seconds"`
	SweepSeconds      int    `mapstructure:"sweep_seconds"`
	Backend           string `mapstructure:"backend"` // "memory" or "postgres"
	PostgresDSN       string `mapstructure:"postgres_dsn"`
	PostgresTableName string `mapstructure:"postgres_table"`
}

// BatchConfig controls the batch worker pool.
type BatchConfig struct {
	Workers         int `mapstructure:"workers"`
	AnalyzerWorkers int `mapstructure:"analyzer_workers"`
	DeadlineSeconds int `mapstructure:"deadline_seconds"`
}

// PublishConfig controls completion-event publishing.
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"` // "memory" or "pubsub"
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig controls raw-body archiving.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"` // "memory", "local" or "gcs"
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// OpsConfig controls the operational HTTP listener.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("collector.user_agent", "sitelens-bot/0.1")
	v.SetDefault("collector.requests_per_second", 2.0)
	v.SetDefault("collector.burst", 1)
	v.SetDefault("collector.timeout_seconds", 15)
	v.SetDefault("collector.max_retries", 2)
	v.SetDefault("collector.retry_delay_ms", 250)
	v.SetDefault("collector.max_retry_delay_ms", 5000)
	v.SetDefault("collector.verify_ssl", true)
	v.SetDefault("collector.respect_robots", true)
	v.SetDefault("collector.headless_allowed", false)
	v.SetDefault("collector.archive_body", false)
	v.SetDefault("processor.clean_whitespace", true)
	v.SetDefault("processor.normalize_urls", true)
	v.SetDefault("processor.remove_comments", true)
	v.SetDefault("processor.extract_metadata", true)
	v.SetDefault("analyzer.enabled", []string{
		"security", "performance", "schema", "accessibility", "mobile", "social", "seo",
	})
	v.SetDefault("analyzer.title_min_length", 10)
	v.SetDefault("analyzer.title_max_length", 60)
	v.SetDefault("analyzer.meta_desc_min_length", 50)
	v.SetDefault("analyzer.meta_desc_max_length", 160)
	v.SetDefault("analyzer.max_page_bytes", 2<<20)
	v.SetDefault("analyzer.max_scripts", 25)
	v.SetDefault("analyzer.max_images", 50)
	v.SetDefault("analyzer.min_word_count", 300)
	v.SetDefault("analyzer.keyword_density_max", 0.05)
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.sweep_seconds", 300)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.postgres_table", "analysis_cache")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.analyzer_workers", 0) // 0 = GOMAXPROCS capped at 4
	v.SetDefault("batch.deadline_seconds", 0) // 0 = no deadline
	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.backend", "memory")
	v.SetDefault("publish.topic", "analysis-completed")
	v.SetDefault("archive.backend", "memory")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("ops.enabled", false)
	v.SetDefault("ops.port", 9090)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Collector.RequestsPerSecond <= 0 {
		return fmt.Errorf("collector.requests_per_second must be > 0")
	}
	if c.Collector.TimeoutSeconds <= 0 {
		return fmt.Errorf("collector.timeout_seconds must be > 0")
	}
	if c.Collector.MaxRetries < 0 {
		return fmt.Errorf("collector.max_retries must be >= 0")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	switch c.Cache.Backend {
	case "memory":
	case "postgres":
		if c.Cache.PostgresDSN == "" {
			return fmt.Errorf("cache.postgres_dsn must be set when cache.backend is postgres")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or postgres, got %q", c.Cache.Backend)
	}
	if c.Publish.Enabled && c.Publish.Backend == "pubsub" && c.Publish.ProjectID == "" {
		return fmt.Errorf("publish.project_id must be set when publish.backend is pubsub")
	}
	if c.Archive.Backend == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.backend is gcs")
	}
	if c.Ops.Enabled && c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0 when ops is enabled")
	}
	for _, name := range severityKeys(c.Analyzer.SeverityWeights) {
		if !analysis.Severity(name).Valid() {
			return fmt.Errorf("analyzer.severity_weights: unknown severity %q", name)
		}
	}
	return nil
}

func severityKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, strings.ToUpper(k))
	}
	return keys
}

// CollectorOptions converts the loaded config into collector options.
func (c Config) CollectorOptions() analysis.CollectorOptions {
	return analysis.CollectorOptions{
		UserAgent:         c.Collector.UserAgent,
		RequestsPerSecond: c.Collector.RequestsPerSecond,
		Burst:             c.Collector.Burst,
		Timeout:           time.Duration(c.Collector.TimeoutSeconds) * time.Second,
		MaxRetries:        c.Collector.MaxRetries,
		RetryDelay:        time.Duration(c.Collector.RetryDelayMs) * time.Millisecond,
		MaxRetryDelay:     time.Duration(c.Collector.MaxRetryDelayMs) * time.Millisecond,
		Headers:           c.Collector.Headers,
		VerifySSL:         c.Collector.VerifySSL,
		RespectRobots:     c.Collector.RespectRobots,
		HeadlessAllowed:   c.Collector.HeadlessAllowed,
		ArchiveBody:       c.Collector.ArchiveBody,
	}
}

// ProcessorOptions converts the loaded config into processor options.
func (c Config) ProcessorOptions() analysis.ProcessorOptions {
	return analysis.ProcessorOptions{
		CleanWhitespace: c.Processor.CleanWhitespace,
		NormalizeURLs:   c.Processor.NormalizeURLs,
		RemoveComments:  c.Processor.RemoveComments,
		ExtractMetadata: c.Processor.ExtractMetadata,
	}
}

// AnalyzerOptions converts the loaded config into analyzer options,
// falling back to the default severity table for unset entries.
func (c Config) AnalyzerOptions() analysis.AnalyzerOptions {
	weights := analysis.DefaultSeverityWeights()
	for name, w := range c.Analyzer.SeverityWeights {
		weights[analysis.Severity(strings.ToUpper(name))] = w
	}
	return analysis.AnalyzerOptions{
		SeverityWeights:   weights,
		OverallWeights:    c.Analyzer.OverallWeights,
		TitleMinLength:    c.Analyzer.TitleMinLength,
		TitleMaxLength:    c.Analyzer.TitleMaxLength,
		MetaDescMinLength: c.Analyzer.MetaDescMinLength,
		MetaDescMaxLength: c.Analyzer.MetaDescMaxLength,
		MaxPageBytes:      c.Analyzer.MaxPageBytes,
		MaxScripts:        c.Analyzer.MaxScripts,
		MaxImages:         c.Analyzer.MaxImages,
		MinWordCount:      c.Analyzer.MinWordCount,
		KeywordDensityMax: c.Analyzer.KeywordDensityMax,
	}
}

// CacheTTL returns the configured cache TTL.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// CacheSweepInterval returns the background sweep interval.
func (c Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepSeconds) * time.Second
}

// BatchDeadline returns the batch deadline, zero when unset.
func (c Config) BatchDeadline() time.Duration {
	return time.Duration(c.Batch.DeadlineSeconds) * time.Second
}
