package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mwaghorn2000/oxidex/pkg/config"
	pkgredis "github.com/mwaghorn2000/oxidex/pkg/redis"
	"github.com/mwaghorn2000/oxidex/pkg/resilience"
)

// RedisCache caches search results in Redis with a TTL. Concurrent misses
// for the same key are deduplicated through singleflight, and a circuit
// breaker keeps a flapping Redis from slowing every query down.
type RedisCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewRedis creates a Redis-backed query cache.
func NewRedis(client *pkgredis.Client, cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("redis-cache", 5, 15*time.Second),
		logger:  slog.Default().With("component", "query-cache", "backend", "redis"),
	}
}

func (c *RedisCache) get(ctx context.Context, key string) (*Result, bool) {
	var data string
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.client.Get(ctx, key)
		if pkgredis.IsNilError(getErr) {
			data = ""
			return nil
		}
		return getErr
	})
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if data == "" {
		c.misses.Add(1)
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &result, true
}

func (c *RedisCache) set(ctx context.Context, key string, result *Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute implements Query.
func (c *RedisCache) GetOrCompute(ctx context.Context, term string, limit int, compute ComputeFunc) (*Result, bool, error) {
	key := buildKey(term, limit)
	if result, ok := c.get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.get(ctx, key); ok {
			return result, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate implements Query by deleting every oxidex search key.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return err
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats implements Query.
func (c *RedisCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
