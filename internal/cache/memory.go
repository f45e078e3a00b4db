// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/canonical/identity-provider/internal/logging"
)

var _ CacheAdapter = (*InMemoryCache)(nil)

type memoryEntry struct {
	value []byte
	// expiresAt zero means the entry never expires.
	expiresAt time.Time
	// accessed is a monotonically increasing counter, not a wall clock;
	// eviction removes the entry with the smallest value.
	accessed uint64
}

// InMemoryCache is the default CacheAdapter: a mutex-guarded map with TTL
// expiry, LRU eviction past maxEntries and an optional background sweep for
// lazily discovered expired keys.
type InMemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	counter uint64

	maxEntries int
	done       chan struct{}
	closeOnce  sync.Once

	// now is swappable for tests.
	now func() time.Time

	logger logging.LoggerInterface
}

func NewInMemoryCache(maxEntries int, cleanupInterval time.Duration, logger logging.LoggerInterface) *InMemoryCache {
	c := &InMemoryCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		done:       make(chan struct{}),
		now:        time.Now,
		logger:     logger,
	}

	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}

	return c
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	if c.expired(entry) {
		delete(c.entries, key)
		return nil, false, nil
	}

	c.counter++
	entry.accessed = c.counter

	return entry.value, true, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl != 0 {
		// A negative ttl yields an instant in the past, so the entry is
		// stored already expired.
		expiresAt = c.now().Add(ttl)
	}

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLeastRecentlyUsed()
	}

	c.counter++
	c.entries[key] = &memoryEntry{
		value:     value,
		expiresAt: expiresAt,
		accessed:  c.counter,
	}

	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			deleted++
		}
	}

	return deleted, nil
}

func (c *InMemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryEntry)
	return nil
}

// Close stops the background sweep.
func (c *InMemoryCache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *InMemoryCache) expired(entry *memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !entry.expiresAt.After(c.now())
}

// evictLeastRecentlyUsed removes the entry with the smallest access counter.
// Caller must hold the lock.
func (c *InMemoryCache) evictLeastRecentlyUsed() {
	var victim string
	var oldest uint64
	for key, entry := range c.entries {
		if victim == "" || entry.accessed < oldest {
			victim = key
			oldest = entry.accessed
		}
	}

	if victim != "" {
		delete(c.entries, victim)
	}
}

func (c *InMemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.entries {
				if c.expired(entry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
