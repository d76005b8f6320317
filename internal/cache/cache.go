// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mangashelf/internal/metrics"
)

// DefaultCleanupInterval is the sweep period used when none is configured.
const DefaultCleanupInterval = time.Minute

// Entry represents a cached item with expiration
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory cache with a fixed default TTL.
//
// Expired entries are dropped lazily on Get and by a periodic sweep that runs
// while Serve is active. There is no size bound and no LRU eviction.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	stats   Stats

	cleanupInterval time.Duration
	now             func() time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// Stats tracks cache performance metrics
type Stats struct {
	mu          sync.RWMutex
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Option configures an in-memory Cache.
type Option func(*Cache)

// WithCleanupInterval sets how often Serve sweeps expired entries.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// withClock replaces time.Now; tests use it to expire entries without sleeping.
func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an in-memory cache whose entries live for ttl.
//
//	c := cache.New(5 * time.Minute)
//	c.Set("manga:popular", payload)
//	if data, ok := c.Get("manga:popular"); ok {
//	    // use data
//	}
//
// Run Serve (directly or under a supervisor) to enable the background sweep.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:         make(map[string]Entry),
		ttl:             ttl,
		cleanupInterval: DefaultCleanupInterval,
		now:             time.Now,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.LastCleanup = c.now()
	return c
}

// Get returns the cached value for key. Expired entries are deleted and
// reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		evicted := false
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have refreshed it.
		if current, ok := c.entries[key]; ok && c.now().After(current.ExpiresAt) {
			delete(c.entries, key)
			c.updateSize(len(c.entries))
			evicted = true
		}
		c.mu.Unlock()
		c.recordMiss()
		if evicted {
			c.recordEviction(1)
		}
		return nil, false
	}

	c.recordHit()
	return entry.Data, true
}

// Set stores a value with the default TTL, overwriting any existing entry.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: c.now().Add(ttl),
	}
	c.updateSize(len(c.entries))
}

// Delete removes a specific cache entry by key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.updateSize(len(c.entries))
	c.mu.Unlock()

	if existed {
		c.recordEviction(1)
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.updateSize(0)
	c.mu.Unlock()

	c.recordEviction(evictions)
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache statistics.
func (c *Cache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		Hits:        c.stats.Hits,
		Misses:      c.stats.Misses,
		Evictions:   c.stats.Evictions,
		TotalKeys:   c.stats.TotalKeys,
		LastCleanup: c.stats.LastCleanup,
	}
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache) HitRate() float64 {
	return hitRate(c.GetStats())
}

// Serve runs the expiry sweep until ctx is cancelled or Close is called.
// It implements suture.Service.
func (c *Cache) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (c *Cache) String() string {
	return "memory-cache-sweeper"
}

// Close stops the sweep. Stored entries remain readable.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// cleanup removes all expired entries
func (c *Cache) cleanup() {
	now := c.now()
	c.mu.Lock()
	evictions := int64(0)
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	c.updateSize(len(c.entries))
	c.mu.Unlock()

	c.recordEviction(evictions)
	c.stats.mu.Lock()
	c.stats.LastCleanup = now
	c.stats.mu.Unlock()
}

// updateSize must be called with c.mu held.
func (c *Cache) updateSize(n int) {
	c.stats.mu.Lock()
	c.stats.TotalKeys = int64(n)
	c.stats.mu.Unlock()
	metrics.CacheSize.WithLabelValues(BackendMemory).Set(float64(n))
}

func (c *Cache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	metrics.CacheHits.WithLabelValues(BackendMemory).Inc()
}

func (c *Cache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
	metrics.CacheMisses.WithLabelValues(BackendMemory).Inc()
}

func (c *Cache) recordEviction(n int64) {
	if n == 0 {
		return
	}
	c.stats.mu.Lock()
	c.stats.Evictions += n
	c.stats.mu.Unlock()
	metrics.CacheEvictions.WithLabelValues(BackendMemory).Add(float64(n))
}

func hitRate(stats Stats) float64 {
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// GenerateKey creates a deterministic cache key from an operation name and
// its parameters. Parameters are JSON encoded (map keys sorted) and hashed.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
