// Package service wraps the engine behind the locking and normalisation
// contract the core leaves to its caller. The engine itself holds no lock;
// Service owns exactly one sync.RWMutex and every engine operation in the
// process goes through it. It also drives the cache, metrics, and analytics
// side effects that the core deliberately knows nothing about.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mwaghorn2000/oxidex/internal/analytics"
	"github.com/mwaghorn2000/oxidex/internal/cache"
	"github.com/mwaghorn2000/oxidex/internal/engine"
	"github.com/mwaghorn2000/oxidex/internal/engine/document"
	"github.com/mwaghorn2000/oxidex/internal/engine/tokenizer"
	apperrors "github.com/mwaghorn2000/oxidex/pkg/errors"
	"github.com/mwaghorn2000/oxidex/pkg/logger"
	"github.com/mwaghorn2000/oxidex/pkg/metrics"
)

// SearchResponse is the query result surfaced to handlers.
type SearchResponse struct {
	Term      string         `json:"term"`
	TotalHits int            `json:"total_hits"`
	Results   []SearchResult `json:"results"`
	CacheHit  bool           `json:"cache_hit"`
	TookMs    int64          `json:"took_ms"`
}

// SearchResult is one ranked document with its registry entry resolved.
type SearchResult struct {
	DocID      uint64  `json:"doc_id"`
	Path       string  `json:"path"`
	Score      float64 `json:"score"`
	TokenCount int     `json:"token_count"`
}

// Service serialises access to a single Engine and layers the query cache,
// Prometheus metrics, and analytics tracking on top of it.
type Service struct {
	mu      sync.RWMutex
	engine  *engine.Engine
	pathIDs map[string]uint64

	queryCache cache.Query
	metrics    *metrics.Metrics
	collector  *analytics.Collector

	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache attaches a query cache. Without one every search recomputes.
func WithCache(q cache.Query) Option {
	return func(s *Service) { s.queryCache = q }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCollector attaches the analytics event collector.
func WithCollector(c *analytics.Collector) Option {
	return func(s *Service) { s.collector = c }
}

// WithLimits overrides the default and maximum search result limits.
func WithLimits(defaultLimit, maxResults int) Option {
	return func(s *Service) {
		s.defaultLimit = defaultLimit
		s.maxResults = maxResults
	}
}

// New creates a Service owning the given engine.
func New(eng *engine.Engine, opts ...Option) *Service {
	s := &Service{
		engine:       eng,
		pathIDs:      make(map[string]uint64),
		defaultLimit: 10,
		maxResults:   100,
		logger:       slog.Default().With("component", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddDocument indexes the file at path. Re-adding a path that is already
// indexed removes the stale version first, so the watcher can treat writes
// as plain adds. The returned entry is the newly assigned one.
func (s *Service) AddDocument(ctx context.Context, path string) (*document.Entry, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path must not be empty", apperrors.ErrInvalidInput)
	}

	s.mu.Lock()
	if oldID, ok := s.pathIDs[path]; ok {
		s.engine.RemoveID(oldID)
		delete(s.pathIDs, path)
	}
	id, err := s.engine.AddDocument(path)
	if err != nil {
		s.mu.Unlock()
		s.recordIndexFailure(err)
		return nil, err
	}
	s.pathIDs[path] = id
	entry, _ := s.engine.GetDoc(id)
	docs, terms := s.engine.TotalDocs(), s.engine.TermCount()
	s.mu.Unlock()

	s.afterMutation(ctx, docs, terms)
	if s.metrics != nil {
		s.metrics.DocsIndexedTotal.Inc()
	}
	s.track(analytics.Event{
		Type:       analytics.EventDocumentAdded,
		Timestamp:  time.Now(),
		RequestID:  logger.RequestIDFromContext(ctx),
		DocID:      entry.ID,
		Path:       entry.Path,
		TokenCount: entry.TokenCount,
	})
	return entry, nil
}

// RemoveDocument deletes the document with the given id. It returns
// ErrDocumentNotFound when the id was never assigned or already removed.
func (s *Service) RemoveDocument(ctx context.Context, id uint64) error {
	s.mu.Lock()
	entry, ok := s.engine.GetDoc(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: id %d", apperrors.ErrDocumentNotFound, id)
	}
	path := entry.Path
	s.engine.RemoveID(id)
	if cur, ok := s.pathIDs[path]; ok && cur == id {
		delete(s.pathIDs, path)
	}
	docs, terms := s.engine.TotalDocs(), s.engine.TermCount()
	s.mu.Unlock()

	s.afterMutation(ctx, docs, terms)
	if s.metrics != nil {
		s.metrics.DocsRemovedTotal.Inc()
	}
	s.track(analytics.Event{
		Type:      analytics.EventDocumentRemoved,
		Timestamp: time.Now(),
		RequestID: logger.RequestIDFromContext(ctx),
		DocID:     id,
		Path:      path,
	})
	return nil
}

// RemoveByPath deletes the document currently indexed under path, if any.
// Used by the filesystem watcher, which sees paths rather than ids.
func (s *Service) RemoveByPath(ctx context.Context, path string) error {
	s.mu.RLock()
	id, ok := s.pathIDs[path]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: path %s", apperrors.ErrDocumentNotFound, path)
	}
	return s.RemoveDocument(ctx, id)
}

// GetDocument returns the registry entry for id.
func (s *Service) GetDocument(id uint64) (*document.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.engine.GetDoc(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrDocumentNotFound, id)
	}
	return entry, nil
}

// Search runs a single-term query. The raw query is normalised the same way
// document tokens were (trim punctuation edges, lowercase) before it reaches
// the engine, which matches terms verbatim. limit <= 0 selects the default.
func (s *Service) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	term := tokenizer.Normalize(query)
	if term == "" {
		if s.metrics != nil {
			s.metrics.SearchQueriesTotal.WithLabelValues("invalid").Inc()
		}
		return nil, fmt.Errorf("%w: query %q normalises to nothing", apperrors.ErrInvalidInput, query)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxResults {
		limit = s.maxResults
	}

	start := time.Now()
	var (
		cached *cache.Result
		hit    bool
		err    error
	)
	if s.queryCache != nil {
		cached, hit, err = s.queryCache.GetOrCompute(ctx, term, limit, func() (*cache.Result, error) {
			return s.rank(term, limit), nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		cached = s.rank(term, limit)
	}
	took := time.Since(start)

	resp := &SearchResponse{
		Term:      term,
		TotalHits: cached.TotalHits,
		Results:   s.resolve(cached),
		CacheHit:  hit,
		TookMs:    took.Milliseconds(),
	}
	s.observeSearch(resp, took)
	s.track(analytics.Event{
		Type:      analytics.EventSearch,
		Timestamp: time.Now(),
		RequestID: logger.RequestIDFromContext(ctx),
		Term:      term,
		TotalHits: resp.TotalHits,
		Returned:  len(resp.Results),
		LatencyMs: took.Milliseconds(),
		CacheHit:  hit,
	})
	return resp, nil
}

// rank computes the ranked result under the read lock and trims it to limit.
func (s *Service) rank(term string, limit int) *cache.Result {
	s.mu.RLock()
	scored := s.engine.Search(term)
	s.mu.RUnlock()

	total := len(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return &cache.Result{Term: term, TotalHits: total, Results: scored}
}

// resolve attaches registry data to the scored ids. A document removed
// between caching and resolution simply drops out of the response.
func (s *Service) resolve(cached *cache.Result) []SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(cached.Results))
	for _, sd := range cached.Results {
		entry, ok := s.engine.GetDoc(sd.DocID)
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			DocID:      sd.DocID,
			Path:       entry.Path,
			Score:      sd.Score,
			TokenCount: entry.TokenCount,
		})
	}
	return results
}

// TotalDocs returns the number of registered documents.
func (s *Service) TotalDocs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.TotalDocs()
}

// TermCount returns the number of distinct indexed terms.
func (s *Service) TermCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.TermCount()
}

// InvalidateCache drops every cached search result.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.queryCache == nil {
		return nil
	}
	return s.queryCache.Invalidate(ctx)
}

// CacheStats returns query-cache hit and miss counts.
func (s *Service) CacheStats() (hits, misses int64, enabled bool) {
	if s.queryCache == nil {
		return 0, 0, false
	}
	hits, misses = s.queryCache.Stats()
	return hits, misses, true
}

// afterMutation invalidates the cache and refreshes the registry gauges.
// Cached results are tied to the corpus state they were computed from, so
// every successful add or remove flushes the whole cache.
func (s *Service) afterMutation(ctx context.Context, docs, terms int) {
	if s.queryCache != nil {
		if err := s.queryCache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation failed", "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.RegisteredDocs.Set(float64(docs))
		s.metrics.IndexedTerms.Set(float64(terms))
	}
}

func (s *Service) recordIndexFailure(err error) {
	if s.metrics == nil {
		return
	}
	stage := "read"
	if errors.Is(err, apperrors.ErrDocumentStat) {
		stage = "stat"
	}
	s.metrics.IndexFailuresTotal.WithLabelValues(stage).Inc()
}

func (s *Service) observeSearch(resp *SearchResponse, took time.Duration) {
	if s.metrics == nil {
		return
	}
	resultType := "hit"
	if resp.TotalHits == 0 {
		resultType = "zero_result"
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	s.metrics.SearchResultsCount.Observe(float64(len(resp.Results)))
	cacheStatus := "miss"
	if resp.CacheHit {
		cacheStatus = "hit"
		s.metrics.CacheHitsTotal.Inc()
	} else if s.queryCache != nil {
		s.metrics.CacheMissesTotal.Inc()
	}
	s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(took.Seconds())
}

func (s *Service) track(event analytics.Event) {
	if s.collector == nil {
		return
	}
	s.collector.Track(event)
}
