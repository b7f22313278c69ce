package analysis

import (
	"errors"
	"fmt"
)

// CollectionErrorKind distinguishes the ways a fetch can fail.
type CollectionErrorKind string

// Collection failure kinds.
const (
	KindTimeout          CollectionErrorKind = "timeout"
	KindConnection       CollectionErrorKind = "connection"
	KindHTTPStatus       CollectionErrorKind = "http_status"
	KindRobotsDisallowed CollectionErrorKind = "robots_disallowed"
)

// CollectionError is returned by the collector when a page cannot be
// fetched. It is non-fatal to a batch: the URL is recorded as FAILED and
// the run continues.
type CollectionError struct {
	Kind       CollectionErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *CollectionError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("collect %s: http status %d", e.URL, e.StatusCode)
	case KindRobotsDisallowed:
		return fmt.Sprintf("collect %s: disallowed by robots.txt", e.URL)
	default:
		return fmt.Sprintf("collect %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *CollectionError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient. Robots denials and
// client errors are permanent; timeouts, connection failures and 5xx are
// retried per policy.
func (e *CollectionError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// NewCollectionError wraps err as a CollectionError of the given kind.
func NewCollectionError(kind CollectionErrorKind, url string, err error) *CollectionError {
	return &CollectionError{Kind: kind, URL: url, Err: err}
}

// NewHTTPStatusError builds a CollectionError for a non-2xx response.
func NewHTTPStatusError(url string, code int) *CollectionError {
	return &CollectionError{Kind: KindHTTPStatus, URL: url, StatusCode: code}
}

// AsCollectionError unwraps err into a *CollectionError if possible.
func AsCollectionError(err error) (*CollectionError, bool) {
	var ce *CollectionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// UnknownAnalyzerError is raised at request-construction time when a
// requested analyzer name is not registered. No network work happens first.
type UnknownAnalyzerError struct {
	Name string
}

func (e *UnknownAnalyzerError) Error() string {
	return fmt.Sprintf("unknown analyzer %q", e.Name)
}

// IsUnknownAnalyzer reports whether err wraps an UnknownAnalyzerError.
func IsUnknownAnalyzer(err error) bool {
	var ue *UnknownAnalyzerError
	return errors.As(err, &ue)
}
