package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory map whose entries expire after a fixed TTL.
type Cache[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[K]entry[V]

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// New creates a cache and starts a sweeper that drops expired entries
// every ttl/2. Call Stop to end it.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	c := newCache[K, V](ttl, time.Now)
	go c.cleanup(ttl / 2)
	return c
}

func newCache[K comparable, V any](ttl time.Duration, now func() time.Time) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:         ttl,
		now:         now,
		items:       make(map[K]entry[V]),
		stopCleanup: make(chan struct{}),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || !c.now().Before(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.Set(key, value)
	return value, nil
}

// Len counts entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) sweep() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

func (c *Cache[K, V]) cleanup(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Cache[K, V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}
