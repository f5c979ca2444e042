package cache

import (
	"container/list"
	"sync"
	"time"
)

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	cost      int64
	expiresAt time.Time
}

func (e *lruEntry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRU is a thread-safe cache bounded by both entry count and aggregate cost,
// with per-entry TTL. When either bound is exceeded the least recently used
// entries are evicted; expired entries are dropped on read and by
// RemoveExpired.
//
// The cost bound is best-effort at one extreme: a single entry costing more
// than maxCost is kept rather than thrashed, so the aggregate cost can exceed
// the bound by the size of that one entry.
type LRU[K comparable, V any] struct {
	maxEntries int
	maxCost    int64
	defaultTTL time.Duration

	items     map[K]*list.Element
	eviction  *list.List
	totalCost int64
	mu        sync.Mutex
	onEvict   func(key K, value V)
	now       func() time.Time
}

// New creates an LRU bounded by maxEntries and maxCost. Entries written
// without an explicit TTL expire after defaultTTL; a zero defaultTTL disables
// expiry. maxEntries must be positive, otherwise it panics. A maxCost of zero
// disables the cost bound.
func New[K comparable, V any](maxEntries int, maxCost int64, defaultTTL time.Duration) *LRU[K, V] {
	if maxEntries <= 0 {
		panic("LRU cache capacity must be positive")
	}
	return &LRU[K, V]{
		maxEntries: maxEntries,
		maxCost:    maxCost,
		defaultTTL: defaultTTL,
		items:      make(map[K]*list.Element),
		eviction:   list.New(),
		now:        time.Now,
	}
}

// SetEvictCallback sets a callback invoked for every evicted, expired, or
// removed entry. Useful for cleanup of resources held by values.
func (c *LRU[K, V]) SetEvictCallback(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// SetClock overrides the time source. Intended for tests.
func (c *LRU[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get retrieves a value and marks it as recently used. An expired entry is
// removed and reported as a miss.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	if entry.expired(c.now()) {
		c.removeElement(elem)
		return zero, false
	}
	c.eviction.MoveToFront(elem)
	return entry.value, true
}

// Put adds or updates a value with the default TTL.
func (c *LRU[K, V]) Put(key K, value V, cost int64) {
	c.PutTTL(key, value, cost, c.defaultTTL)
}

// PutTTL adds or updates a value with an explicit TTL (zero disables expiry
// for this entry). The entry is marked as recently used; least recently used
// entries are evicted until both bounds hold again.
func (c *LRU[K, V]) PutTTL(key K, value V, cost int64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*lruEntry[K, V])
		c.totalCost += cost - entry.cost
		entry.value = value
		entry.cost = cost
		entry.expiresAt = expiresAt
		c.eviction.MoveToFront(elem)
	} else {
		entry := &lruEntry[K, V]{key: key, value: value, cost: cost, expiresAt: expiresAt}
		elem := c.eviction.PushFront(entry)
		c.items[key] = elem
		c.totalCost += cost
	}

	for c.eviction.Len() > c.maxEntries || (c.maxCost > 0 && c.totalCost > c.maxCost && c.eviction.Len() > 1) {
		c.evictOldest()
	}
}

// Remove removes an entry. Returns the removed value and true if it existed.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*lruEntry[K, V])
		c.removeElement(elem)
		return entry.value, true
	}

	var zero V
	return zero, false
}

// RemoveExpired drops every expired entry and returns how many were removed.
// Callers run this on a timer; reads also drop expired entries lazily.
func (c *LRU[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*lruEntry[K, V]).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Len returns the number of entries currently cached, including any that have
// expired but not yet been dropped.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Cost returns the aggregate cost of all cached entries.
func (c *LRU[K, V]) Cost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCost
}

// Clear removes all entries. If an evict callback is set, it's called for
// each entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, elem := range c.items {
			entry := elem.Value.(*lruEntry[K, V])
			c.onEvict(entry.key, entry.value)
		}
	}

	c.items = make(map[K]*list.Element)
	c.eviction.Init()
	c.totalCost = 0
}

// Must be called with lock held.
func (c *LRU[K, V]) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
	}
}

// Must be called with lock held.
func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)
	c.totalCost -= entry.cost

	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}
