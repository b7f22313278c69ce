package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitelens/sitelens/internal/analysis"
)

func baseRequest() analysis.AnalysisRequest {
	return analysis.AnalysisRequest{
		URL:       "https://example.com/page",
		Analyzers: []string{"security", "performance"},
		Collector: analysis.DefaultCollectorOptions(),
		Processor: analysis.DefaultProcessorOptions(),
		Analyzer:  analysis.DefaultAnalyzerOptions(),
	}
}

func TestForRequestStable(t *testing.T) {
	t.Parallel()

	a, err := ForRequest(baseRequest())
	require.NoError(t, err)
	b, err := ForRequest(baseRequest())
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestForRequestAnalyzerOrderIrrelevant(t *testing.T) {
	t.Parallel()

	req := baseRequest()
	a, err := ForRequest(req)
	require.NoError(t, err)

	req.Analyzers = []string{"performance", "security"}
	b, err := ForRequest(req)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestForRequestSensitiveToOutputConfig(t *testing.T) {
	t.Parallel()

	a, err := ForRequest(baseRequest())
	require.NoError(t, err)

	req := baseRequest()
	req.Analyzer.TitleMaxLength = 70
	b, err := ForRequest(req)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	req = baseRequest()
	req.URL = "https://example.com/other"
	c, err := ForRequest(req)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestForRequestIgnoresFetchOnlyKnobs(t *testing.T) {
	t.Parallel()

	a, err := ForRequest(baseRequest())
	require.NoError(t, err)

	req := baseRequest()
	req.Collector.MaxRetries = 9
	req.Collector.RequestsPerSecond = 100
	b, err := ForRequest(req)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestHash(t *testing.T) {
	t.Parallel()

	require.Equal(t, Hash([]byte("abc")), Hash([]byte("abc")))
	require.NotEqual(t, Hash([]byte("abc")), Hash([]byte("abd")))
	require.Len(t, Hash(nil), 64)
}
