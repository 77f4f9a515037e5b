// Package cache stores search responses in Redis, keyed by query and limit.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/deidaraiorek/gogol/internal/logger"
	"github.com/deidaraiorek/gogol/internal/metrics"
)

const keyPrefix = "gogol:search:"

// Store is the subset of Client used by QueryCache.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache caches values of type T as JSON. Cache failures are logged
// and treated as misses.
type QueryCache[T any] struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New[T any](store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache[T] {
	return &QueryCache[T]{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  logger.WithComponent("query-cache"),
	}
}

func (c *QueryCache[T]) Get(ctx context.Context, query string, limit int) (T, bool) {
	var result T
	key := BuildKey(query, limit)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return result, false
	}
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return result, false
	}

	c.hits.Add(1)
	c.metrics.ObserveCache(true)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return result, true
}

func (c *QueryCache[T]) miss() {
	c.misses.Add(1)
	c.metrics.ObserveCache(false)
}

func (c *QueryCache[T]) Set(ctx context.Context, query string, limit int, result T) {
	key := BuildKey(query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value or computes and stores it.
// Concurrent misses for the same key share one computation.
func (c *QueryCache[T]) GetOrCompute(ctx context.Context, query string, limit int, compute func() (T, error)) (T, bool, error) {
	if result, ok := c.Get(ctx, query, limit); ok {
		return result, true, nil
	}

	key := BuildKey(query, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, result)
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

// Invalidate drops every cached search response.
func (c *QueryCache[T]) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache[T]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey maps queries that differ only in case or spacing to one key.
func BuildKey(query string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:limit=%d", normalized, limit)))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
