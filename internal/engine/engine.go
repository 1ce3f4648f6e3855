// Package engine implements the document registry: it owns the set of
// indexed documents, assigns ids, and orchestrates every mutation of the
// inverted index.
//
// An Engine is deliberately not self-synchronizing. All four operations run
// synchronously to completion, never suspend, and hold no internal lock; a
// caller that shares an Engine across goroutines must serialise writers
// against each other and against readers (internal/service wraps one Engine
// in a sync.RWMutex for exactly this).
package engine

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mwaghorn2000/oxidex/internal/engine/document"
	"github.com/mwaghorn2000/oxidex/internal/engine/index"
	"github.com/mwaghorn2000/oxidex/internal/engine/ranker"
	"github.com/mwaghorn2000/oxidex/internal/engine/tokenizer"
	apperrors "github.com/mwaghorn2000/oxidex/pkg/errors"
)

// Engine is the registry plus its inverted index. Document ids start at 0,
// increase by one per successful AddDocument, and are never reused: removal
// consumes an id, it does not free it.
type Engine struct {
	docs   map[uint64]*document.Entry
	idx    *index.Index
	nextID uint64
	meta   document.Extractor
	logger *slog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithExtractor substitutes the metadata extractor, primarily for tests.
func WithExtractor(ex document.Extractor) Option {
	return func(e *Engine) {
		e.meta = ex
	}
}

// New returns an empty Engine backed by the filesystem StatExtractor.
func New(opts ...Option) *Engine {
	e := &Engine{
		docs:   make(map[uint64]*document.Entry),
		idx:    index.New(),
		meta:   document.NewStatExtractor(),
		logger: slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddDocument reads, tokenizes, and registers the file at path, returning
// the assigned id.
//
// The add is staged: token deltas and the pending entry are accumulated
// locally and committed to the index and registry in one step only after
// both fallible steps (file read, metadata stat) have succeeded. A failure
// therefore leaves the engine completely untouched: indexing before the
// metadata stat would strand postings for an id that was never registered.
func (e *Engine) AddDocument(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", apperrors.ErrDocumentRead, path, err)
	}

	tokens := tokenizer.Tokenize(raw)
	deltas := index.CollectDeltas(tokens)

	meta, err := e.meta.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", apperrors.ErrDocumentStat, path, err)
	}

	id := e.nextID
	e.idx.Apply(id, deltas)
	e.docs[id] = &document.Entry{
		ID:         id,
		Path:       path,
		Meta:       meta,
		TokenCount: len(tokens),
	}
	e.nextID++

	e.logger.Debug("document registered",
		"id", id,
		"path", path,
		"token_count", len(tokens),
		"distinct_terms", len(deltas),
	)
	return id, nil
}

// RemoveID deletes the document and cascades through the inverted index,
// pruning any term whose posting list empties. It reports whether the id was
// registered; removing an unknown or already-removed id is a no-op returning
// false.
func (e *Engine) RemoveID(id uint64) bool {
	if _, ok := e.docs[id]; !ok {
		return false
	}
	delete(e.docs, id)
	e.idx.RemoveDoc(id)
	e.logger.Debug("document removed", "id", id)
	return true
}

// GetDoc returns the entry for id, if registered. Read-only.
func (e *Engine) GetDoc(id uint64) (*document.Entry, bool) {
	entry, ok := e.docs[id]
	return entry, ok
}

// Search scores every document containing term and returns them ordered by
// score descending (ties by ascending id). An unseen term yields an empty
// slice, not an error. The term is matched exactly as given: the core never
// re-normalises queries, that is the caller's contract.
func (e *Engine) Search(term string) []ranker.ScoredDoc {
	return ranker.Rank(e.idx.Postings(term), len(e.docs), func(docID uint64) (int, bool) {
		entry, ok := e.docs[docID]
		if !ok {
			return 0, false
		}
		return entry.TokenCount, true
	})
}

// TotalDocs returns the number of currently registered documents.
func (e *Engine) TotalDocs() int {
	return len(e.docs)
}

// TermCount returns the number of distinct indexed terms.
func (e *Engine) TermCount() int {
	return e.idx.Terms()
}

// DocFrequency returns how many registered documents contain term.
func (e *Engine) DocFrequency(term string) int {
	return e.idx.DocFrequency(term)
}

// TermFrequency returns the occurrence count of term in the given document.
func (e *Engine) TermFrequency(term string, id uint64) int {
	return e.idx.TermFrequency(term, id)
}
