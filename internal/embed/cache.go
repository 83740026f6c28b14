package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a TTL cache of extracted vectors. Extraction is deterministic
// for a given model, options and text, so cached vectors never go stale;
// the TTL only bounds memory.
type Cache struct {
	cache *ttlcache.Cache[string, []float32]
}

// NewCache creates a cache holding at most capacity vectors for ttl each.
func NewCache(ttl time.Duration, capacity uint64) *Cache {
	c := ttlcache.New[string, []float32](
		ttlcache.WithTTL[string, []float32](ttl),
		ttlcache.WithCapacity[string, []float32](capacity),
	)
	go c.Start()
	return &Cache{cache: c}
}

// Key derives the cache key for one extraction call. Options are part of
// the key: the same text under a different normalization mode or special
// token handling is a different vector.
func (c *Cache) Key(text string, opts Options) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%t|%t|%s",
		opts.Normalize, opts.AddSpecial, opts.ParseSpecial, text)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for key, or nil.
func (c *Cache) Get(key string) []float32 {
	item := c.cache.Get(key)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Put stores vec under key.
func (c *Cache) Put(key string, vec []float32) {
	c.cache.Set(key, vec, ttlcache.DefaultTTL)
}

// Len reports the number of cached vectors.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Close stops the cache expiration loop.
func (c *Cache) Close() {
	c.cache.Stop()
}
