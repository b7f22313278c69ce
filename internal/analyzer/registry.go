package analyzer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Registry maps analyzer names to implementations. It is an injected
// dependency, not package-global state, so tests can assemble partial or
// fake registries. Registration happens at composition time; the map is
// read-only afterwards.
type Registry struct {
	logger    *zap.Logger
	analyzers map[string]analysis.Analyzer
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:    logger,
		analyzers: map[string]analysis.Analyzer{},
	}
}

// NewDefault returns a registry with every built-in analyzer registered.
func NewDefault(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(NewSecurity())
	r.Register(NewPerformance())
	r.Register(NewSchema())
	r.Register(NewAccessibility())
	r.Register(NewMobile())
	r.Register(NewSocial())
	r.Register(NewSEO())
	return r
}

// Register adds an analyzer under its own name, replacing any previous
// registration.
func (r *Registry) Register(a analysis.Analyzer) {
	r.analyzers[a.Name()] = a
	if r.logger != nil {
		r.logger.Debug("analyzer registered", zap.String("analyzer", a.Name()))
	}
}

// Names returns the registered analyzer names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps requested names to analyzers. An empty request selects every
// registered analyzer. Any unknown name fails the whole request with
// UnknownAnalyzerError before any other work happens.
func (r *Registry) Resolve(names []string) ([]analysis.Analyzer, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	out := make([]analysis.Analyzer, 0, len(names))
	for _, name := range names {
		a, ok := r.analyzers[name]
		if !ok {
			return nil, &analysis.UnknownAnalyzerError{Name: name}
		}
		out = append(out, a)
	}
	return out, nil
}
