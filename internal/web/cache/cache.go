// Package cache keeps rendered-page data (listings, search results) in Redis
// and collapses concurrent misses for the same key into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-dev/website/pkg/metrics"
	pkgredis "github.com/inkwell-dev/website/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "blog:"

// Backend is the key-value store behind the cache; *pkgredis.Client
// implements it.
type Backend interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// PageCache is safe for concurrent use. A nil *PageCache is valid and
// caches nothing.
type PageCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a PageCache. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *PageCache {
	return &PageCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "page-cache"),
	}
}

// ListKey names one page of the blog index.
func ListKey(page, perPage int) string {
	return fmt.Sprintf("%slist:%d:%d", keyPrefix, page, perPage)
}

// SearchKey names the results of a normalized search plan key.
func SearchKey(planKey string, limit int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:limit=%d", planKey, limit)))
	return fmt.Sprintf("%ssearch:%x", keyPrefix, hash[:16])
}

// Fetch returns the cached value at key or computes, stores and returns it.
// Cache failures are logged and fall through to compute.
func Fetch[T any](ctx context.Context, c *PageCache, key string, compute func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}
	var cached T
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		var again T
		if c.get(ctx, key, &again) {
			return again, nil
		}
		fresh, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.backend.SetJSON(ctx, key, fresh, c.ttl); err != nil {
			c.logger.Error("cache set failed", "key", key, "error", err)
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val.(T), nil
}

func (c *PageCache) get(ctx context.Context, key string, dst any) bool {
	err := c.backend.GetJSON(ctx, key, dst)
	if err == nil {
		c.logger.Debug("cache hit", "key", key)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return true
	}
	if !pkgredis.IsNilError(err) {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return false
}

// Invalidate drops every cached page. It is called after an ingestion run
// publishes new articles.
func (c *PageCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating page cache: %w", err)
	}
	c.logger.Info("page cache invalidated", "keys_deleted", deleted)
	return nil
}
