package catalog

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voyagen/stationvault/internal/cache"
	"github.com/voyagen/stationvault/internal/models"
)

// DefaultCacheTTL bounds how long a cached answer lives. Entries are keyed by
// the station files' fingerprint, so the TTL only limits memory, not staleness.
const DefaultCacheTTL = 10 * time.Minute

// rebuildLockTTL bounds how long a crashed rebuild can hold the lock.
const rebuildLockTTL = 2 * time.Minute

var rebuildLockKey = cache.Key("lock", "rebuild")

// Cached wraps a Catalog with a Redis cache for read operations. Every cache
// key embeds the current fingerprint of the station files, so an answer is
// never served after any of them changes. Rebuilds take a Redis lock so that
// hosts sharing a data volume do not rebuild at the same time.
type Cached struct {
	inner *Catalog
	cache *cache.Redis
	ttl   time.Duration
	log   *zap.Logger
}

var _ Service = (*Cached)(nil)

// NewCached wraps inner. A zero ttl uses DefaultCacheTTL.
func NewCached(inner *Catalog, c *cache.Redis, ttl time.Duration, log *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{inner: inner, cache: c, ttl: ttl, log: log}
}

// fingerprint returns the current file fingerprint, or "" when the files
// cannot be inspected, in which case callers bypass the cache.
func (c *Cached) fingerprint() string {
	snap, err := c.inner.loc.inspect()
	if err != nil {
		return ""
	}
	return snap.Fingerprint()
}

// cached serves key from Redis or computes, stores and returns it.
func cached[T any](ctx context.Context, c *Cached, key string, compute func() (T, error)) (T, error) {
	if v, err := cache.Get[T](ctx, c.cache, key); err == nil {
		return v, nil
	} else if !cache.IsMiss(err) {
		c.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	if err := cache.Set(ctx, c.cache, key, v, c.ttl); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// --- cached reads ---

// Count implements Service.
func (c *Cached) Count(ctx context.Context) uint64 {
	fp := c.fingerprint()
	if fp == "" {
		return c.inner.Count(ctx)
	}
	n, _ := cached(ctx, c, cache.Key("q", fp, "count"), func() (uint64, error) {
		return c.inner.Count(ctx), nil
	})
	return n
}

// Breakdown implements Service.
func (c *Cached) Breakdown(ctx context.Context) models.Breakdown {
	fp := c.fingerprint()
	if fp == "" {
		return c.inner.Breakdown(ctx)
	}
	b, _ := cached(ctx, c, cache.Key("q", fp, "breakdown"), func() (models.Breakdown, error) {
		return c.inner.Breakdown(ctx), nil
	})
	return b
}

// Lookup implements Service. Misses and errors are not cached.
func (c *Cached) Lookup(ctx context.Context, id string) (models.Station, error) {
	fp := c.fingerprint()
	if fp == "" {
		return c.inner.Lookup(ctx, id)
	}
	return cached(ctx, c, cache.Key("q", fp, "station", termHash(id)), func() (models.Station, error) {
		return c.inner.Lookup(ctx, id)
	})
}

// Detail implements Service.
func (c *Cached) Detail(ctx context.Context, id string) (string, error) {
	st, err := c.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderDetail(&st), nil
}

// Field implements Service.
func (c *Cached) Field(ctx context.Context, id, field string) (string, bool, error) {
	if _, _, err := fieldValue(&models.Station{}, field); err != nil {
		return "", false, err
	}
	st, err := c.Lookup(ctx, id)
	if err != nil {
		return "", false, err
	}
	return fieldValue(&st, field)
}

// Search implements Service.
func (c *Cached) Search(ctx context.Context, term string) ([]models.Station, error) {
	fp := c.fingerprint()
	if fp == "" {
		return c.inner.Search(ctx, term)
	}
	return cached(ctx, c, cache.Key("q", fp, "search", termHash(term)), func() ([]models.Station, error) {
		return c.inner.Search(ctx, term)
	})
}

// Status implements Service and reports whether a rebuild lock is held.
func (c *Cached) Status(ctx context.Context) (Status, error) {
	st, err := c.inner.Status(ctx)
	if err != nil {
		return st, err
	}
	st.RebuildLocked = cache.IsLocked(ctx, c.cache, rebuildLockKey)
	return st, nil
}

// --- writes ---

// Export implements Service; exports are never cached.
func (c *Cached) Export(ctx context.Context, format Format, path string) (ExportResult, error) {
	return c.inner.Export(ctx, format, path)
}

// MirrorTo implements Service.
func (c *Cached) MirrorTo(ctx context.Context, m Mirror) (int64, error) {
	return c.inner.MirrorTo(ctx, m)
}

// Rebuild implements Service under the cross-process rebuild lock.
func (c *Cached) Rebuild(ctx context.Context) (string, error) {
	unlock, err := cache.TryLock(ctx, c.cache, rebuildLockKey, rebuildLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLocked) {
			return "", ErrRebuildInProgress
		}
		return "", fmt.Errorf("rebuild lock: %w", err)
	}
	defer unlock()

	path, err := c.inner.Rebuild(ctx)
	if err != nil {
		return "", err
	}
	c.purge(ctx)
	return path, nil
}

// Invalidate implements Service.
func (c *Cached) Invalidate(ctx context.Context) error {
	if err := c.inner.Invalidate(ctx); err != nil {
		return err
	}
	c.purge(ctx)
	return nil
}

// purge drops every cached answer. Stale entries are unreachable anyway once
// the fingerprint moves; this only frees memory early.
func (c *Cached) purge(ctx context.Context) {
	pattern := cache.Key("q", "*")
	if err := cache.DelPattern(ctx, c.cache, pattern); err != nil {
		c.log.Warn("cache purge failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// termHash keeps arbitrary user input out of key syntax.
func termHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}
