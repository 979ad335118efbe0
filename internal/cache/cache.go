// Package cache stores raw upstream response payloads so repeated queries
// within the TTL window skip the network entirely.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for response-payload caching implementations.
// Get returns the cached payload if present and not expired, Set stores a
// payload with TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// InMemoryCache implements Cache using an in-memory map with TTL-based expiration.
// Expired entries are removed on access. Not thread-safe; use with single
// goroutine or external synchronization.
type InMemoryCache struct {
	data map[string]cacheEntry
}

// cacheEntry stores a cached payload with expiration timestamp.
type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves the cached payload for the key if present and not expired.
// Returns (payload, true, nil) on cache hit, (nil, false, nil) on miss or
// expiration. Expired entries are automatically removed from cache.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return nil, false, nil
	}

	return entry.payload, true, nil
}

// Set stores a payload in cache with the specified TTL duration.
// Entry expires after TTL elapses and will be removed on next Get access.
func (c *InMemoryCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.data[key] = cacheEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
