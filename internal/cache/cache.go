package cache

import "sync"

// Cache is a thread-safe LRU cache with a fixed capacity. Values pushed out
// by capacity, Delete, or Purge are passed to the release callback.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*lruNode[K, V]
	order    lruList[K, V]
	capacity int
	release  func(K, V)

	hits, misses, evictions uint64
}

// New creates a cache holding at most capacity entries. A capacity below 1
// means unlimited. release may be nil.
func New[K comparable, V any](capacity int, release func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*lruNode[K, V]),
		capacity: capacity,
		release:  release,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.moveToFront(node)
	return node.value, true
}

// Set stores value under key, releasing any value it replaces.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	var released []*lruNode[K, V]
	if node, ok := c.entries[key]; ok {
		released = append(released, &lruNode[K, V]{key: key, value: node.value})
		node.value = value
		c.order.moveToFront(node)
	} else {
		c.entries[key] = c.order.pushFront(key, value)
		released = c.evictLocked()
	}
	c.mu.Unlock()
	c.releaseAll(released)
}

// GetOrCreate returns the cached value for key or stores the result of
// create. create runs under the lock, so concurrent callers never build the
// same key twice. A create error is returned and nothing is stored.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	if node, ok := c.entries[key]; ok {
		c.hits++
		c.order.moveToFront(node)
		c.mu.Unlock()
		return node.value, nil
	}
	c.misses++
	value, err := create()
	if err != nil {
		c.mu.Unlock()
		var zero V
		return zero, err
	}
	c.entries[key] = c.order.pushFront(key, value)
	released := c.evictLocked()
	c.mu.Unlock()
	c.releaseAll(released)
	return value, nil
}

// Delete removes key, releasing its value. It reports whether key was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	node, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
		c.order.unlink(node)
	}
	c.mu.Unlock()
	if ok {
		c.releaseAll([]*lruNode[K, V]{node})
	}
	return ok
}

// Purge releases every entry, oldest first.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	var released []*lruNode[K, V]
	for node := c.order.removeOldest(); node != nil; node = c.order.removeOldest() {
		released = append(released, node)
	}
	c.entries = make(map[K]*lruNode[K, V])
	c.mu.Unlock()
	c.releaseAll(released)
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// evictLocked unlinks entries beyond capacity. Caller must hold c.mu and
// release the returned nodes after unlocking.
func (c *Cache[K, V]) evictLocked() []*lruNode[K, V] {
	if c.capacity < 1 {
		return nil
	}
	var out []*lruNode[K, V]
	for c.order.len > c.capacity {
		node := c.order.removeOldest()
		delete(c.entries, node.key)
		c.evictions++
		out = append(out, node)
	}
	return out
}

func (c *Cache[K, V]) releaseAll(nodes []*lruNode[K, V]) {
	if c.release == nil {
		return
	}
	for _, n := range nodes {
		c.release(n.key, n.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}
