package adapters

import (
	"context"

	"github.com/karimsalem/askbridge/internal/registry"
)

// ResultItem is the normalized shape every adapter produces, whatever the
// source system's native schema looks like. Attribution (SystemID) must
// survive all downstream merging.
type ResultItem struct {
	SystemID registry.SystemID `json:"system_id"`
	Title    string            `json:"title"`
	Snippet  string            `json:"snippet"`
	URL      string            `json:"url"`
	Score    float64           `json:"score"`
}

// Result is the outcome of one adapter invocation for one query: either a
// list of items or a classified failure, never both.
type Result struct {
	SystemID registry.SystemID `json:"system_id"`
	Items    []ResultItem      `json:"items,omitempty"`
	Err      *Failure          `json:"error,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Adapter wraps one backend system behind a uniform capability interface.
// Implementations must be safe for concurrent use: the executor invokes
// adapters in parallel and may invoke the same adapter from concurrent
// query cycles.
type Adapter interface {
	// ID returns the system this adapter serves.
	ID() registry.SystemID

	// Query runs the sub-query against the backend and returns normalized
	// items. Every error returned is a *Failure so the executor can apply
	// its retry policy.
	Query(ctx context.Context, query string) ([]ResultItem, error)

	// Ping verifies connectivity and credentials. Used by diagnostics
	// only, never during routing or fan-out.
	Ping(ctx context.Context) error
}

// snippetLimit bounds how much text one item contributes downstream.
const snippetLimit = 500

// truncate shortens s to at most snippetLimit runes.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLimit {
		return s
	}
	return string(runes[:snippetLimit]) + "…"
}

// rankScore assigns a descending position-based score to the i-th of n
// results, for backends that do not report relevance themselves.
func rankScore(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n-i) / float64(n)
}
