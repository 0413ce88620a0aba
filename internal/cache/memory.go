package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

type memoryEntry struct {
	payload   []byte
	cachedAt  time.Time
	expiresAt time.Time
	hitCount  int
}

// MemoryCache is a size-bounded TTL cache. Values are stored JSON-encoded
// so callers never share mutable state with the cache.
type MemoryCache struct {
	entries   map[string]memoryEntry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

// NewMemoryCache starts a cache with a default ttl and capacity
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	c := &MemoryCache{
		entries:  make(map[string]memoryEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
	go c.cleanup()
	return c
}

// Get decodes the cached value for key into out
func (c *MemoryCache) Get(_ context.Context, key string, out any) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiresAt) {
		if exists {
			delete(c.entries, key)
		}
		c.missCount++
		return false, nil
	}

	if err := json.Unmarshal(entry.payload, out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	entry.hitCount++
	c.entries[key] = entry
	c.hitCount++
	return true, nil
}

// Set stores value under key. A non-positive ttl uses the cache default.
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return nil
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := c.now()
	c.entries[key] = memoryEntry{
		payload:   payload,
		cachedAt:  now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Delete removes key
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear removes every entry and keeps the counters
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return Stats{
		Backend:  "memory",
		Entries:  len(c.entries),
		MaxSize:  c.maxSize,
		Hits:     c.hitCount,
		Misses:   c.missCount,
		HitRatio: hitRatio(c.hitCount, c.missCount),
	}
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopChan) })
	return nil
}

func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *MemoryCache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopChan:
			return
		}
	}
}
