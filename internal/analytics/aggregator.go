package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mwaghorn2000/oxidex/pkg/kafka"
)

// Stats is the aggregated view served over HTTP.
type Stats struct {
	TotalSearches   int64       `json:"total_searches"`
	DocsAdded       int64       `json:"docs_added"`
	DocsRemoved     int64       `json:"docs_removed"`
	CacheHits       int64       `json:"cache_hits"`
	CacheMisses     int64       `json:"cache_misses"`
	ZeroResultCount int64       `json:"zero_result_count"`
	AvgLatencyMs    float64     `json:"avg_latency_ms"`
	P50LatencyMs    int64       `json:"p50_latency_ms"`
	P95LatencyMs    int64       `json:"p95_latency_ms"`
	P99LatencyMs    int64       `json:"p99_latency_ms"`
	TopTerms        []TermCount `json:"top_terms"`
	ZeroResultTerms []TermCount `json:"zero_result_terms"`
	SearchesPerMin  float64     `json:"searches_per_minute"`
}

// TermCount pairs a search term with how often it was queried.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Aggregator folds analytics events into running statistics. Record is safe
// for concurrent use; the Kafka consume loop and direct in-process recording
// share the same path.
type Aggregator struct {
	mu              sync.Mutex
	totalSearches   int64
	docsAdded       int64
	docsRemoved     int64
	cacheHits       int64
	cacheMisses     int64
	zeroResults     int64
	latencies       []int64
	termCounts      map[string]int64
	zeroResultTerms map[string]int64
	startTime       time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator. Events arrive either through
// Record directly or through the Kafka consume loop started with Start.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:       make([]int64, 0, 10000),
		termCounts:      make(map[string]int64),
		zeroResultTerms: make(map[string]int64),
		startTime:       time.Now(),
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start enters the consume loop on a consumer built around Handler, until
// ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return consumer.Start(ctx)
}

// Handler returns the kafka.MessageHandler feeding this aggregator.
func (a *Aggregator) Handler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			a.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		a.Record(event)
		return nil
	}
}

// Record folds one event into the statistics.
func (a *Aggregator) Record(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch event.Type {
	case EventSearch:
		a.totalSearches++
		if event.CacheHit {
			a.cacheHits++
		} else {
			a.cacheMisses++
		}
		if event.TotalHits == 0 {
			a.zeroResults++
			a.zeroResultTerms[event.Term]++
		}
		a.latencies = append(a.latencies, event.LatencyMs)
		a.termCounts[event.Term]++
	case EventDocumentAdded:
		a.docsAdded++
	case EventDocumentRemoved:
		a.docsRemoved++
	}
}

// Stats returns a snapshot of the aggregated statistics.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		TotalSearches:   a.totalSearches,
		DocsAdded:       a.docsAdded,
		DocsRemoved:     a.docsRemoved,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopTerms = topN(a.termCounts, 10)
	stats.ZeroResultTerms = topN(a.zeroResultTerms, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.SearchesPerMin = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * pct / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Term < result[j].Term
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
