// Package cache provides the optional search-result cache. Two backends
// implement the same interface: an in-process LRU (the default) and Redis
// for deployments that want a shared cache surviving restarts.
//
// The cache sits strictly outside the engine: entries are invalidated
// wholesale on every index mutation, so a cached result never outlives the
// corpus state it was computed from.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/mwaghorn2000/oxidex/internal/engine/ranker"
)

const keyPrefix = "oxidex:search:"

// Result is one cached search outcome.
type Result struct {
	Term      string             `json:"term"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

// ComputeFunc produces a Result on cache miss.
type ComputeFunc func() (*Result, error)

// Query is the search-result cache contract.
type Query interface {
	// GetOrCompute returns the cached result for (term, limit) or runs
	// compute, caching its result. The bool reports a cache hit.
	GetOrCompute(ctx context.Context, term string, limit int, compute ComputeFunc) (*Result, bool, error)
	// Invalidate drops every cached entry.
	Invalidate(ctx context.Context) error
	// Stats returns hit and miss counters.
	Stats() (hits, misses int64)
}

// buildKey hashes the normalised term and limit into a bounded cache key.
func buildKey(term string, limit int) string {
	raw := fmt.Sprintf("%s:limit=%d", term, limit)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}
