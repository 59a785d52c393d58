package wildtag

import (
	"context"
	"encoding/json"
	"sync"
)

// defaultCacheSize bounds a MemoryCache created with a non-positive size.
const defaultCacheSize = 4096

// MemoryCache is an in-process Cache. Values are stored JSON-encoded, so
// Get decodes into any pointer the value round-trips through.
// Oldest entries are evicted first once the cache is full.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	order   []string
	maxSize int
}

// NewMemoryCache creates a cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	return &MemoryCache{
		entries: make(map[string][]byte),
		maxSize: maxSize,
	}
}

// Key joins prefix and value into a cache key.
func (c *MemoryCache) Key(prefix, value string) string {
	return prefix + ":" + value
}

// Get decodes the entry under key into dest. It reports false on a miss or
// when the stored value does not fit dest.
func (c *MemoryCache) Get(_ context.Context, key string, dest any) bool {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// Set stores value under key. Values that cannot be encoded are dropped.
func (c *MemoryCache) Set(_ context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = data
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
