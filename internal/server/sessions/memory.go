package sessions

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	writtenAt time.Time
}

// MemoryCache is an in-process Cache. Expiry is judged against the time
// passed by the caller, so it follows whatever clock the store uses.
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *MemoryCache) Put(_ context.Context, key, value string, now time.Time) error {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, writtenAt: now}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string, now time.Time) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.expired(e, now) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Ping(context.Context) error { return nil }

// Purge drops expired entries and returns how many were removed.
func (c *MemoryCache) Purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) expired(e cacheEntry, now time.Time) bool {
	return !now.Before(e.writtenAt.Add(c.ttl))
}

// RunJanitor purges expired entries every interval until ctx is done.
func (c *MemoryCache) RunJanitor(ctx context.Context, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge(now())
		}
	}
}
