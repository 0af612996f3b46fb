package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// QueryKey names one cached backend read
type QueryKey string

const (
	KeyUser          QueryKey = "user"
	KeyBalance       QueryKey = "balance"
	KeyTransactions  QueryKey = "transactions"
	KeyProfits       QueryKey = "profits"
	KeyInvestments   QueryKey = "investments"
	KeyActiveSignals QueryKey = "active-signals"
	KeyReferralTree  QueryKey = "referral-tree"
)

// Fetcher loads the value for a key from the backend
type Fetcher func(ctx context.Context) (any, error)

// CacheObserver is notified of cache traffic; used for metrics
type CacheObserver interface {
	CacheHit(key QueryKey)
	CacheMiss(key QueryKey)
	CacheInvalidated()
}

type cacheEntry struct {
	value      any
	generation uint64
}

type inflightCall struct {
	done       chan struct{}
	generation uint64
	value      any
	err        error
}

// QueryCache holds the last value the backend returned per key for one session.
// Concurrent misses on a key share a single fetch. InvalidateAll makes every key
// stale at once; a fetch that was already running when the cache was invalidated
// answers its own waiters but is not stored.
type QueryCache struct {
	mu         sync.RWMutex
	entries    map[QueryKey]cacheEntry
	generation uint64

	inflightMu sync.Mutex
	inflight   map[QueryKey]*inflightCall

	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	fetches       atomic.Int64
	invalidations atomic.Int64

	observer CacheObserver
}

// NewQueryCache creates an empty cache. observer may be nil.
func NewQueryCache(observer CacheObserver) *QueryCache {
	return &QueryCache{
		entries:  make(map[QueryKey]cacheEntry),
		inflight: make(map[QueryKey]*inflightCall),
		observer: observer,
	}
}

// Get returns the cached value for key, or runs fetch once and caches its result.
// Errors are never cached.
func (c *QueryCache) Get(ctx context.Context, key QueryKey, fetch Fetcher) (any, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	current := c.generation
	c.mu.RUnlock()

	if ok && entry.generation == current {
		c.cacheHits.Add(1)
		if c.observer != nil {
			c.observer.CacheHit(key)
		}
		return entry.value, nil
	}

	c.cacheMisses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss(key)
	}

	call, isNew := c.getOrCreateInflight(key, current)
	if isNew {
		c.fetches.Add(1)
		// The shared fetch outlives any single caller; each caller stops
		// waiting on its own ctx.
		fetchCtx := context.WithoutCancel(ctx)
		go func() {
			value, err := runFetch(fetchCtx, key, fetch)
			c.completeInflight(key, call, value, err)
		}()
	}

	select {
	case <-call.done:
		return call.value, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runFetch turns a panicking fetcher into an error so waiters are always released.
func runFetch(ctx context.Context, key QueryKey, fetch Fetcher) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("fetch %q panicked: %v", key, r)
		}
	}()
	return fetch(ctx)
}

// Peek returns the current value for key without fetching.
func (c *QueryCache) Peek(key QueryKey) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || entry.generation != c.generation {
		return nil, false
	}
	return entry.value, true
}

// InvalidateAll marks every key stale; the next read of any key refetches.
func (c *QueryCache) InvalidateAll() {
	c.mu.Lock()
	c.generation++
	c.entries = make(map[QueryKey]cacheEntry)
	c.mu.Unlock()

	c.invalidations.Add(1)
	if c.observer != nil {
		c.observer.CacheInvalidated()
	}
}

// getOrCreateInflight joins a running fetch for key started in the same
// generation, or registers a new one.
func (c *QueryCache) getOrCreateInflight(key QueryKey, generation uint64) (*inflightCall, bool) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()

	if call, exists := c.inflight[key]; exists && call.generation == generation {
		return call, false
	}

	// A fetch may have completed between the caller's cache read and here.
	c.mu.RLock()
	entry, ok := c.entries[key]
	fresh := ok && entry.generation == c.generation
	c.mu.RUnlock()
	if fresh {
		done := make(chan struct{})
		close(done)
		return &inflightCall{done: done, generation: entry.generation, value: entry.value}, false
	}

	call := &inflightCall{
		done:       make(chan struct{}),
		generation: generation,
	}
	c.inflight[key] = call
	return call, true
}

// completeInflight stores a successful result if no invalidation happened
// meanwhile, then releases every waiter.
func (c *QueryCache) completeInflight(key QueryKey, call *inflightCall, value any, err error) {
	if err == nil {
		c.mu.Lock()
		if c.generation == call.generation {
			c.entries[key] = cacheEntry{value: value, generation: call.generation}
		}
		c.mu.Unlock()
	}

	c.inflightMu.Lock()
	if c.inflight[key] == call {
		delete(c.inflight, key)
	}
	c.inflightMu.Unlock()

	call.value = value
	call.err = err
	close(call.done)
}

// GetStats returns cache statistics
func (c *QueryCache) GetStats() *QueryCacheStats {
	hits := c.cacheHits.Load()
	misses := c.cacheMisses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	c.inflightMu.Lock()
	inflightCount := len(c.inflight)
	c.inflightMu.Unlock()

	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return &QueryCacheStats{
		CacheHits:     hits,
		CacheMisses:   misses,
		HitRate:       hitRate,
		Fetches:       c.fetches.Load(),
		Invalidations: c.invalidations.Load(),
		InflightCount: inflightCount,
		Entries:       entries,
	}
}

// QueryCacheStats represents cache statistics
type QueryCacheStats struct {
	CacheHits     int64
	CacheMisses   int64
	HitRate       float64 // Percentage
	Fetches       int64
	Invalidations int64
	InflightCount int
	Entries       int
}

// Fetch is the typed form of QueryCache.Get.
func Fetch[T any](ctx context.Context, c *QueryCache, key QueryKey, fetch func(ctx context.Context) (T, error)) (T, error) {
	value, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache key %q holds %T, not %T", key, value, zero)
	}
	return typed, nil
}
