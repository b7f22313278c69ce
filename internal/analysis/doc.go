// Package analysis defines the core types and interfaces shared across the
// page-analysis engine: requests, raw and parsed documents, findings, scored
// results, and the contracts implemented by the collector, processor,
// analyzers, cache and orchestrator subsystems.
package analysis
