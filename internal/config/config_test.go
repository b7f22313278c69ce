package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitelens/sitelens/internal/analysis"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "sitelens-bot/0.1", cfg.Collector.UserAgent)
	require.InDelta(t, 2.0, cfg.Collector.RequestsPerSecond, 0.001)
	require.True(t, cfg.Collector.VerifySSL)
	require.True(t, cfg.Collector.RespectRobots)
	require.Equal(t, 4, cfg.Batch.Workers)
	require.Equal(t, "memory", cfg.Cache.Backend)
	require.Equal(t, time.Hour, cfg.CacheTTL())
	require.ElementsMatch(t,
		[]string{"security", "performance", "schema", "accessibility", "mobile", "social", "seo"},
		cfg.Analyzer.Enabled,
	)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitelens.yaml")
	body := `
collector:
  user_agent: "custom-bot/1.0"
  requests_per_second: 5
  timeout_seconds: 30
analyzer:
  title_max_length: 70
  severity_weights:
    critical: 30
    high: 20
cache:
  ttl_seconds: 120
batch:
  workers: 8
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "custom-bot/1.0", cfg.Collector.UserAgent)
	require.Equal(t, 8, cfg.Batch.Workers)
	require.Equal(t, 2*time.Minute, cfg.CacheTTL())

	opts := cfg.AnalyzerOptions()
	require.Equal(t, 70, opts.TitleMaxLength)
	require.InDelta(t, 30, opts.SeverityWeights[analysis.SeverityCritical], 0.001)
	require.InDelta(t, 20, opts.SeverityWeights[analysis.SeverityHigh], 0.001)
	// Unset severities keep their defaults.
	require.InDelta(t, 8, opts.SeverityWeights[analysis.SeverityMedium], 0.001)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rps", func(c *Config) { c.Collector.RequestsPerSecond = 0 }},
		{"zero timeout", func(c *Config) { c.Collector.TimeoutSeconds = 0 }},
		{"negative retries", func(c *Config) { c.Collector.MaxRetries = -1 }},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"zero ttl", func(c *Config) { c.Cache.TTLSeconds = 0 }},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Cache.Backend = "postgres" }},
		{"gcs without bucket", func(c *Config) { c.Archive.Backend = "gcs" }},
		{"bad severity", func(c *Config) {
			c.Analyzer.SeverityWeights = map[string]float64{"shouty": 1}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestCollectorOptionsConversion(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	opts := cfg.CollectorOptions()
	require.Equal(t, 15*time.Second, opts.Timeout)
	require.Equal(t, 250*time.Millisecond, opts.RetryDelay)
	require.Equal(t, 5*time.Second, opts.MaxRetryDelay)
	require.Equal(t, 2, opts.MaxRetries)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SITELENS_COLLECTOR_USER_AGENT", "env-bot/9")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "env-bot/9", cfg.Collector.UserAgent)
}
