// Package index implements the in-memory inverted index: a mapping from each
// normalised term to its posting list (document id -> occurrence count).
//
// The Index is not self-synchronizing. It is owned exclusively by the engine
// registry, which in turn relies on its caller to serialise mutation; the
// ownership contract lives at the call site rather than in an internal lock.
package index

// Deltas is a staged set of posting-count increments for one document,
// keyed by term. It is accumulated locally and committed with Apply in a
// single step, so a failed add never leaves partial postings behind.
type Deltas map[string]int

// CollectDeltas counts occurrences per term in a token sequence.
func CollectDeltas(tokens []string) Deltas {
	deltas := make(Deltas, len(tokens))
	for _, term := range tokens {
		deltas[term]++
	}
	return deltas
}

// Index maps terms to posting lists. Invariants: no term maps to an empty
// posting list, and no posting carries a zero count.
type Index struct {
	postings map[string]map[uint64]int
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[uint64]int),
	}
}

// Apply commits staged deltas for docID. Counts in deltas must be >= 1.
func (ix *Index) Apply(docID uint64, deltas Deltas) {
	for term, count := range deltas {
		if count <= 0 {
			continue
		}
		list, ok := ix.postings[term]
		if !ok {
			list = make(map[uint64]int)
			ix.postings[term] = list
		}
		list[docID] += count
	}
}

// RemoveDoc deletes docID from every posting list and prunes any term whose
// list becomes empty. Removing an unknown id is a no-op.
func (ix *Index) RemoveDoc(docID uint64) {
	for term, list := range ix.postings {
		if _, ok := list[docID]; !ok {
			continue
		}
		delete(list, docID)
		if len(list) == 0 {
			delete(ix.postings, term)
		}
	}
}

// Postings returns the posting list for term, or nil if the term is unseen.
// The returned map is the live posting list; callers must not mutate it.
func (ix *Index) Postings(term string) map[uint64]int {
	return ix.postings[term]
}

// TermFrequency returns the occurrence count of term in docID, or 0.
func (ix *Index) TermFrequency(term string, docID uint64) int {
	return ix.postings[term][docID]
}

// DocFrequency returns the number of documents whose posting list contains
// term, or 0 for an unseen term.
func (ix *Index) DocFrequency(term string) int {
	return len(ix.postings[term])
}

// Terms returns the number of distinct terms currently indexed.
func (ix *Index) Terms() int {
	return len(ix.postings)
}
