package translate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/similarity"
)

// CacheKey identifies a translation. Text is normalized and language codes
// are canonical, so case and whitespace variants share an entry.
type CacheKey struct {
	Text   string
	Source string
	Target string
}

func (k CacheKey) flightKey() string {
	return k.Source + "\x00" + k.Target + "\x00" + k.Text
}

// CacheStats counts cache activity.
type CacheStats struct {
	Hits    int64 `yaml:"hits"`
	Misses  int64 `yaml:"misses"`
	Entries int   `yaml:"entries"`
}

// Cache memoizes successful translations. Failures are never stored.
// It is safe for concurrent use; concurrent misses on one key share a
// single compute call.
type Cache struct {
	mu      sync.RWMutex
	entries map[CacheKey]string
	flight  singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[CacheKey]string)}
}

// Key builds the cache key for a text and language pair.
func Key(text, source, target string) CacheKey {
	return CacheKey{
		Text:   similarity.Normalize(text),
		Source: langmeta.Canonicalize(source),
		Target: langmeta.Canonicalize(target),
	}
}

// Lookup returns the cached translation, if any. It does not touch the
// hit/miss counters.
func (c *Cache) Lookup(text, source, target string) (string, bool) {
	return c.get(Key(text, source, target))
}

func (c *Cache) get(key CacheKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) put(key CacheKey, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// LookupOrCompute returns the cached translation of text, or runs compute,
// stores its result and returns it. A compute error is returned as is and
// nothing is stored.
func (c *Cache) LookupOrCompute(ctx context.Context, text, source, target string, compute func(context.Context) (string, error)) (string, error) {
	key := Key(text, source, target)
	if v, ok := c.get(key); ok {
		c.hits.Add(1)
		return v, nil
	}

	v, err, _ := c.flight.Do(key.flightKey(), func() (any, error) {
		// Filled by a flight that finished after our first check.
		if v, ok := c.get(key); ok {
			c.hits.Add(1)
			return v, nil
		}
		c.misses.Add(1)
		s, err := compute(ctx)
		if err != nil {
			return "", err
		}
		c.put(key, s)
		return s, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len returns the number of cached translations.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}
