package data

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// ResultCache keeps analysis results in memory so follow-up requests (export,
// plots) can refer to them by id. Entries expire after the TTL; nothing is
// persisted.
type ResultCache[T any] struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry[T]
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewResultCache returns a cache with the given TTL (default 1h) and starts
// a janitor that evicts expired entries until Close is called.
func NewResultCache[T any](ttl time.Duration) *ResultCache[T] {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &ResultCache[T]{
		store: make(map[string]*cacheEntry[T]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.cleanup(cleanupInterval(ttl))
	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// Put stores v under a fresh id and returns the id.
func (c *ResultCache[T]) Put(v T) string {
	id := uuid.NewString()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[id] = &cacheEntry[T]{value: v, expiresAt: c.now().Add(c.ttl)}
	return id
}

// Get retrieves a value if present and not expired.
func (c *ResultCache[T]) Get(id string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[id]
	if !ok || c.now().After(entry.expiresAt) {
		return zero, false
	}
	return entry.value, true
}

func (c *ResultCache[T]) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, id)
}

func (c *ResultCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *ResultCache[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *ResultCache[T]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
		}
	}
}

func (c *ResultCache[T]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stop:
			return
		}
	}
}
