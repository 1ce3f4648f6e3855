package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mwaghorn2000/oxidex/internal/engine/ranker"
)

func testResult(term string) *Result {
	return &Result{
		Term:      term,
		TotalHits: 2,
		Results: []ranker.ScoredDoc{
			{DocID: 0, Score: 0.5},
			{DocID: 3, Score: 0.25},
		},
	}
}

func TestMemoryCacheHitMiss(t *testing.T) {
	c, err := NewMemory(16, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	computed := 0
	compute := func() (*Result, error) {
		computed++
		return testResult("cat"), nil
	}

	result, hit, err := c.GetOrCompute(ctx, "cat", 10, compute)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first lookup should be a miss")
	}
	if result.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", result.TotalHits)
	}

	result, hit, err = c.GetOrCompute(ctx, "cat", 10, compute)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("second lookup should be a hit")
	}
	if computed != 1 {
		t.Errorf("compute ran %d times, want 1", computed)
	}
	if len(result.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(result.Results))
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestMemoryCacheLimitIsPartOfKey(t *testing.T) {
	c, err := NewMemory(16, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	computed := 0
	compute := func() (*Result, error) {
		computed++
		return testResult("cat"), nil
	}

	if _, _, err := c.GetOrCompute(ctx, "cat", 10, compute); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.GetOrCompute(ctx, "cat", 5, compute); err != nil || hit {
		t.Errorf("different limit should miss, hit=%v err=%v", hit, err)
	}
	if computed != 2 {
		t.Errorf("compute ran %d times, want 2", computed)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c, err := NewMemory(16, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	compute := func() (*Result, error) { return testResult("dog"), nil }

	if _, _, err := c.GetOrCompute(ctx, "dog", 10, compute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, hit, err := c.GetOrCompute(ctx, "dog", 10, compute); err != nil || hit {
		t.Errorf("expired entry should miss, hit=%v err=%v", hit, err)
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c, err := NewMemory(16, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	compute := func() (*Result, error) { return testResult("cat"), nil }

	if _, _, err := c.GetOrCompute(ctx, "cat", 10, compute); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.GetOrCompute(ctx, "cat", 10, compute); err != nil || hit {
		t.Errorf("invalidated entry should miss, hit=%v err=%v", hit, err)
	}
}

func TestMemoryCacheComputeError(t *testing.T) {
	c, err := NewMemory(16, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	wantErr := errors.New("engine unavailable")
	_, _, err = c.GetOrCompute(ctx, "cat", 10, func() (*Result, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}

	// The failure must not be cached.
	_, hit, err := c.GetOrCompute(ctx, "cat", 10, func() (*Result, error) {
		return testResult("cat"), nil
	})
	if err != nil || hit {
		t.Errorf("post-error lookup hit=%v err=%v, want miss with no error", hit, err)
	}
}

func TestBuildKeyDeterministic(t *testing.T) {
	a := buildKey("cat", 10)
	b := buildKey("cat", 10)
	if a != b {
		t.Errorf("buildKey not deterministic: %q vs %q", a, b)
	}
	if buildKey("cat", 10) == buildKey("cat", 20) {
		t.Error("limit must distinguish keys")
	}
	if buildKey("cat", 10) == buildKey("dog", 10) {
		t.Error("term must distinguish keys")
	}
}
