// Package fingerprint computes stable cache keys for analysis requests.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sitelens/sitelens/internal/analysis"
)

// keyMaterial is the slice of a request that affects analysis output. The
// collector's retry/rate knobs are deliberately excluded: they change how a
// page is fetched, not what the analyzers produce.
type keyMaterial struct {
	URL       string                   `json:"url"`
	Analyzers []string                 `json:"analyzers"`
	Processor analysis.ProcessorOptions `json:"processor"`
	Analyzer  analysis.AnalyzerOptions  `json:"analyzer"`
	Headless  bool                     `json:"headless"`
}

// ForRequest returns the hex SHA-256 fingerprint for a request. Analyzer
// order does not affect the key.
func ForRequest(req analysis.AnalysisRequest) (string, error) {
	names := append([]string(nil), req.Analyzers...)
	sort.Strings(names)

	material := keyMaterial{
		URL:       req.URL,
		Analyzers: names,
		Processor: req.Processor,
		Analyzer:  req.Analyzer,
		Headless:  req.Collector.HeadlessAllowed,
	}
	encoded, err := json.Marshal(material)
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint material: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Hash returns the hex SHA-256 digest of arbitrary bytes. Used for
// content-addressing archived page bodies.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
