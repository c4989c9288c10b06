// Package internal provides caching, charset decoding and node-tree helpers
// shared by the table processor.
package internal

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	prev, next *cacheEntry[V]
	expiresAt  int64
	value      V
	key        string
}

func (e *cacheEntry[V]) isExpired(now int64) bool {
	return e.expiresAt > 0 && now > e.expiresAt
}

// Cache is a thread-safe LRU cache with optional TTL. A zero maxEntries
// disables it.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry[V]
	maxEntries int
	ttl        time.Duration
	head, tail *cacheEntry[V] // sentinels; head.next is most recently used
}

func NewCache[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	if maxEntries < 0 {
		maxEntries = 0
	}
	c := &Cache[V]{
		entries:    make(map[string]*cacheEntry[V], maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
		head:       &cacheEntry[V]{},
		tail:       &cacheEntry[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}
	now := time.Now().UnixNano()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[key]
	if entry == nil {
		return zero, false
	}
	if entry.isExpired(now) {
		c.unlink(entry)
		delete(c.entries, key)
		return zero, false
	}
	c.unlink(entry)
	c.pushFront(entry)
	return entry.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	if key == "" || c.maxEntries == 0 {
		return
	}
	now := time.Now().UnixNano()
	var expiresAt int64
	if c.ttl > 0 {
		expiresAt = now + c.ttl.Nanoseconds()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.unlink(entry)
		c.pushFront(entry)
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictOne(now)
	}
	entry := &cacheEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = entry
	c.pushFront(entry)
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *Cache[V]) pushFront(entry *cacheEntry[V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *Cache[V]) unlink(entry *cacheEntry[V]) {
	if entry.prev == nil || entry.next == nil {
		return
	}
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	entry.prev = nil
	entry.next = nil
}

// evictOne drops an expired entry if there is one, otherwise the least
// recently used entry.
func (c *Cache[V]) evictOne(now int64) {
	for key, entry := range c.entries {
		if entry.isExpired(now) {
			c.unlink(entry)
			delete(c.entries, key)
			return
		}
	}
	if lru := c.tail.prev; lru != c.head {
		c.unlink(lru)
		delete(c.entries, lru.key)
	}
}
