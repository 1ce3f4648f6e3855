package ranker

import (
	"math"
	"testing"
)

const tolerance = 1e-3

func approx(t *testing.T, got, want float64, label string) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %f, want %f", label, got, want)
	}
}

func TestIDF(t *testing.T) {
	// Two docs, term in both: log10(2/3) is negative.
	approx(t, IDF(2, 2), -0.17609, "IDF(2, 2)")
	// Term in one of two docs: log10(2/2) = 0.
	approx(t, IDF(2, 1), 0, "IDF(2, 1)")
	// Rare term in a larger corpus scores positive.
	approx(t, IDF(100, 1), 1.69897, "IDF(100, 1)")
	// Unseen term: smoothing keeps the division finite.
	approx(t, IDF(10, 0), 1, "IDF(10, 0)")
}

func TestScoreNormalisesByLength(t *testing.T) {
	idf := IDF(2, 2)
	approx(t, Score(2, idf, 3), 2*idf/math.Sqrt(3), "Score(2, idf, 3)")
	// Missing token count falls back to 1.
	approx(t, Score(2, idf, 0), 2*idf, "Score with zero length")
}

// The worked corpus from the engine contract: doc 0 = "cat dog dog"
// (3 tokens), doc 1 = "dog dog" (2 tokens).
func twoDocTokenCounts(docID uint64) (int, bool) {
	switch docID {
	case 0:
		return 3, true
	case 1:
		return 2, true
	}
	return 0, false
}

func TestRankTwoDocScenario(t *testing.T) {
	postings := map[uint64]int{0: 2, 1: 2}
	results := Rank(postings, 2, twoDocTokenCounts)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Both scores are negative (dog appears in every doc); the longer
	// document normalises to a less negative score and ranks first.
	if results[0].DocID != 0 || results[1].DocID != 1 {
		t.Fatalf("order = [%d %d], want [0 1]", results[0].DocID, results[1].DocID)
	}
	approx(t, results[0].Score, -0.203, "score(doc 0)")
	approx(t, results[1].Score, -0.249, "score(doc 1)")
}

func TestRankAfterRemoval(t *testing.T) {
	// Doc 0 removed: N=1, df=1, idf=log10(1/2).
	postings := map[uint64]int{1: 2}
	results := Rank(postings, 1, twoDocTokenCounts)

	if len(results) != 1 || results[0].DocID != 1 {
		t.Fatalf("unexpected results %+v", results)
	}
	approx(t, results[0].Score, -0.426, "score(doc 1) after removal")
}

func TestRankEmptyPostings(t *testing.T) {
	results := Rank(nil, 5, twoDocTokenCounts)
	if results == nil || len(results) != 0 {
		t.Fatalf("Rank(nil) = %v, want empty non-nil slice", results)
	}
}

func TestRankTieBreaksByAscendingID(t *testing.T) {
	// Identical frequency and token count: scores tie exactly, so ids
	// decide the order.
	postings := map[uint64]int{7: 1, 3: 1, 5: 1}
	equalCounts := func(uint64) (int, bool) { return 4, true }
	results := Rank(postings, 10, equalCounts)

	wantOrder := []uint64{3, 5, 7}
	for i, want := range wantOrder {
		if results[i].DocID != want {
			t.Errorf("results[%d].DocID = %d, want %d", i, results[i].DocID, want)
		}
	}
}

func TestRankMissingDocDefaultsTokenCount(t *testing.T) {
	// A posting for a doc the registry no longer knows: token count
	// defaults to 1 instead of dividing by zero.
	postings := map[uint64]int{42: 3}
	results := Rank(postings, 4, func(uint64) (int, bool) { return 0, false })

	idf := IDF(4, 1)
	approx(t, results[0].Score, 3*idf, "score with missing doc")
}
