package analysis

import (
	"context"
	"time"
)

// Collector fetches a page under rate-limit, retry and robots policy.
type Collector interface {
	Fetch(ctx context.Context, url string, opts CollectorOptions) (RawDocument, error)
}

// Processor parses a RawDocument into a ParsedDocument. It never fails on
// malformed markup; structural problems land in ParsedDocument.Warnings.
type Processor interface {
	Parse(raw RawDocument, opts ProcessorOptions) (*ParsedDocument, error)
}

// Analyzer scores one capability over a parsed document. Implementations
// must be pure functions of (doc, opts): no I/O, no shared mutable state.
// That purity is what makes concurrent execution and caching safe.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, doc *ParsedDocument, opts AnalyzerOptions) (AnalyzerResult, error)
}

// Cache memoizes analysis outcomes per fingerprint.
//
// Do guarantees at-most-one concurrent computation per fingerprint: callers
// racing on the same uncached key share a single compute invocation. Backend
// failures degrade to bypass mode; Do never fails because of the cache.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (*AnalysisResult, bool)
	Set(ctx context.Context, fingerprint string, result *AnalysisResult)
	Invalidate(ctx context.Context, fingerprint string)
	Do(ctx context.Context, fingerprint string, compute func(ctx context.Context) (*AnalysisResult, error)) (*AnalysisResult, error)
}

// Publisher pushes analysis-completed events to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw fetched bodies and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}
