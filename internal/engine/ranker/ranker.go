// Package ranker computes length-normalised TF-IDF relevance scores for
// single-term queries and orders the resulting documents.
package ranker

import (
	"math"
	"sort"
)

// ScoredDoc is one ranked search result.
type ScoredDoc struct {
	DocID uint64  `json:"doc_id"`
	Score float64 `json:"score"`
}

// TokenCountFunc resolves a document's total token count. Rank substitutes
// 1 when ok is false, so a posting for an unregistered id still yields a
// finite score.
type TokenCountFunc func(docID uint64) (int, bool)

// IDF returns log10(totalDocs / (docFreq + 1)). The +1 smoothing avoids a
// zero division for unseen terms. When docFreq+1 exceeds totalDocs the value
// goes negative; a term present in nearly every document carries negative
// evidence and is not clamped to zero.
func IDF(totalDocs, docFreq int) float64 {
	return math.Log10(float64(totalDocs) / (float64(docFreq) + 1))
}

// Score computes the relevance of one (term, document) pair:
// tf * idf / sqrt(tokenCount).
func Score(termFreq int, idf float64, tokenCount int) float64 {
	if tokenCount <= 0 {
		tokenCount = 1
	}
	return float64(termFreq) * idf / math.Sqrt(float64(tokenCount))
}

// Rank scores every document in a term's posting list and returns the
// results sorted by score descending. Equal scores are broken by ascending
// document id so orderings are reproducible.
func Rank(postings map[uint64]int, totalDocs int, tokenCount TokenCountFunc) []ScoredDoc {
	results := make([]ScoredDoc, 0, len(postings))
	if len(postings) == 0 {
		return results
	}
	idf := IDF(totalDocs, len(postings))
	for docID, freq := range postings {
		count, ok := tokenCount(docID)
		if !ok {
			count = 1
		}
		results = append(results, ScoredDoc{
			DocID: docID,
			Score: Score(freq, idf, count),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	return results
}
