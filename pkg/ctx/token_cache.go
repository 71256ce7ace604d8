package ctx

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"
)

// DefaultCacheCapacity bounds the token-count cache.
const DefaultCacheCapacity = 5000

// CacheStats exposes cache counters for diagnostics and tests.
type CacheStats struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Invalidations uint64
}

type cacheEntry struct {
	contentHash [32]byte
	tokens      int
	computedAt  time.Time
}

// TokenCache memoizes token counts per identity. An entry is valid only
// while the blake3 hash of the content matches; a content mutation is
// therefore a miss that overwrites exactly that identity's entry.
//
// The cache is safe for concurrent use: the LRU container serializes
// writes internally and each entry is written atomically per identity.
// If the container cannot be constructed the cache degrades to computing
// on every call rather than failing.
type TokenCache struct {
	counter TokenCounter
	entries *lru.Cache[string, cacheEntry]
	clock   func() time.Time

	hits          atomic.Uint64
	misses        atomic.Uint64
	evictions     atomic.Uint64
	invalidations atomic.Uint64
}

// NewTokenCache creates a cache over the given counter with a fixed entry
// capacity. A non-positive capacity yields a degraded, uncached instance.
func NewTokenCache(counter TokenCounter, capacity int) *TokenCache {
	c := &TokenCache{
		counter: counter,
		clock:   time.Now,
	}
	entries, err := lru.NewWithEvict[string, cacheEntry](capacity, func(string, cacheEntry) {
		c.evictions.Add(1)
	})
	if err == nil {
		c.entries = entries
	}
	return c
}

// GetOrCompute returns the cached token count for identity when the content
// hash still matches, computing and storing it otherwise.
func (c *TokenCache) GetOrCompute(identity, content string) int {
	if c.entries == nil {
		return c.counter.Count(content)
	}

	hash := blake3.Sum256([]byte(content))
	if entry, ok := c.entries.Get(identity); ok && entry.contentHash == hash {
		c.hits.Add(1)
		return entry.tokens
	}

	c.misses.Add(1)
	tokens := c.counter.Count(content)
	c.entries.Add(identity, cacheEntry{
		contentHash: hash,
		tokens:      tokens,
		computedAt:  c.clock(),
	})
	return tokens
}

// Invalidate removes the entry for identity. The next GetOrCompute for that
// identity always recomputes. Called on file-change notifications.
func (c *TokenCache) Invalidate(identity string) {
	if c.entries == nil {
		return
	}
	if c.entries.Remove(identity) {
		c.invalidations.Add(1)
	}
}

// Len returns the number of cached entries.
func (c *TokenCache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Stats returns a snapshot of the cache counters. Evictions includes
// entries removed by explicit invalidation.
func (c *TokenCache) Stats() CacheStats {
	return CacheStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		Invalidations: c.invalidations.Load(),
	}
}
