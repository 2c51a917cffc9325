package topic

import (
	"strings"
	"sync"
)

const (
	maxCacheEntries = 100
	maxKeyLength    = 100
)

// classificationCache memoizes classifier decisions per normalized text.
// Once full it stops accepting new entries instead of evicting: the cache
// stays deterministic for the inputs it has seen, and repeated hot queries
// are the case worth covering.
type classificationCache struct {
	mu      sync.Mutex
	entries map[string]bool
}

func newClassificationCache() *classificationCache {
	return &classificationCache{entries: make(map[string]bool, maxCacheEntries)}
}

func cacheKey(text string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	if len(key) > maxKeyLength {
		key = key[:maxKeyLength]
	}
	return key
}

func (c *classificationCache) get(text string) (allowed, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	allowed, ok = c.entries[cacheKey(text)]
	return allowed, ok
}

func (c *classificationCache) put(text string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(text)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= maxCacheEntries {
		return
	}
	c.entries[key] = allowed
}
