// Package cache provides the content-addressed recognition result cache.
// Keys are image content hashes, never plate text.
package cache

import (
	"sync"
	"time"

	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
)

// Defaults for the recognition result cache.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 1000
)

type entry struct {
	result    domain.PlateResult
	createdAt time.Time
	expiresAt time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is a TTL cache of recognition results keyed by image hash.
// Eviction on overflow is FIFO by insertion time, deliberately not LRU:
// predictable eviction matters more here than recency (the duplicate
// suppressor is the recency-sensitive component).
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	hits       int64
	misses     int64
	now        func() time.Time
}

// New creates a cache with the given TTL and capacity.
// Non-positive arguments fall back to the defaults.
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached result for the image hash, if present and
// fresh. Expired entries are evicted on read.
func (c *Cache) Get(imageHash string) (*domain.PlateResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[imageHash]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, imageHash)
		c.misses++
		return nil, false
	}

	c.hits++
	result := e.result
	return &result, true
}

// Set upserts a result with a fresh expiry. At capacity the single
// oldest entry by creation time is evicted first.
func (c *Cache) Set(imageHash string, result domain.PlateResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[imageHash]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.entries[imageHash] = entry{
		result:    result,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

// Delete removes an entry, reporting whether it existed.
func (c *Cache) Delete(imageHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[imageHash]
	delete(c.entries, imageHash)
	return ok
}

// Clear removes all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Size:   len(c.entries),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.createdAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
