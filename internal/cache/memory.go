package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

type memoryEntry struct {
	result  *Result
	expires time.Time
}

// MemoryCache is an in-process LRU query cache with per-entry TTL. It is the
// default backend: no external service, bounded memory, safe for concurrent
// use.
type MemoryCache struct {
	entries *lru.Cache[string, memoryEntry]
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemory creates an LRU cache holding at most size entries for ttl each.
func NewMemory(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{
		entries: entries,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache", "backend", "memory"),
	}, nil
}

func (c *MemoryCache) get(key string) (*Result, bool) {
	entry, ok := c.entries.Get(key)
	if !ok || time.Now().After(entry.expires) {
		if ok {
			c.entries.Remove(key)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.result, true
}

// GetOrCompute implements Query.
func (c *MemoryCache) GetOrCompute(ctx context.Context, term string, limit int, compute ComputeFunc) (*Result, bool, error) {
	key := buildKey(term, limit)
	if result, ok := c.get(key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.get(key); ok {
			return result, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, memoryEntry{
			result:  result,
			expires: time.Now().Add(c.ttl),
		})
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate implements Query by purging every entry.
func (c *MemoryCache) Invalidate(ctx context.Context) error {
	c.entries.Purge()
	c.logger.Debug("cache invalidated")
	return nil
}

// Stats implements Query.
func (c *MemoryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
