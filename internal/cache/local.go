package cache

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// LocalCache implements Cache in process memory.
// This is suitable for single-instance deployments.
type LocalCache struct {
	mu        sync.RWMutex
	entries   map[string]localEntry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// NewLocalCache creates an in-memory cache. A non-positive ttl keeps entries forever.
func NewLocalCache(ttl time.Duration) *LocalCache {
	return &LocalCache{
		entries: make(map[string]localEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the value stored under key. Expired entries are removed.
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if current, ok := c.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return append([]byte(nil), entry.value...), true, nil
}

// Set stores a copy of value. At most once per ttl it also drops every
// expired entry, so keys that are never read again do not accumulate.
func (c *LocalCache) Set(_ context.Context, key string, value []byte) error {
	now := c.now()
	entry := localEntry{value: append([]byte(nil), value...)}
	if c.ttl > 0 {
		entry.expiresAt = now.Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	if c.ttl > 0 && !now.Before(c.nextSweep) {
		c.sweepLocked(now)
		c.nextSweep = now.Add(c.ttl)
	}
	return nil
}

func (c *LocalCache) sweepLocked(now time.Time) {
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close drops all entries.
func (c *LocalCache) Close() error {
	c.mu.Lock()
	c.entries = make(map[string]localEntry)
	c.mu.Unlock()
	return nil
}
