package collector

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Engine performs one HTTP GET and returns the raw document. Engines know
// nothing about robots, rate limits or retries; the Collector wraps them.
type Engine interface {
	Get(ctx context.Context, url string, opts analysis.CollectorOptions) (analysis.RawDocument, error)
}

// classify maps a transport-level error onto the collection taxonomy.
func classify(url string, err error) *analysis.CollectionError {
	var ce *analysis.CollectionError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return analysis.NewCollectionError(analysis.KindTimeout, url, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return analysis.NewCollectionError(analysis.KindTimeout, url, err)
	}
	// Colly surfaces client timeouts as url.Error wrapping a string; catch
	// the common phrasing before falling back to a connection error.
	if strings.Contains(err.Error(), "Client.Timeout") {
		return analysis.NewCollectionError(analysis.KindTimeout, url, err)
	}
	return analysis.NewCollectionError(analysis.KindConnection, url, err)
}
