package cache

import (
	"sort"
	"sync"
)

// Map is a concurrency safe map.
type Map[K comparable, V any] struct {
	data map[K]V
	sync.RWMutex
}

// NewMap creates an empty map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{data: make(map[K]V)}
}

// Get retrieves a value by key, with existence check
func (c *Map[K, V]) Get(key K) (V, bool) {
	c.RLock()
	defer c.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set stores a value with the given key
func (c *Map[K, V]) Set(key K, value V) {
	c.Lock()
	defer c.Unlock()
	c.data[key] = value
}

// Size returns the number of items
func (c *Map[K, V]) Size() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.data)
}

// Snapshot returns a copy of all entries.
func (c *Map[K, V]) Snapshot() map[K]V {
	c.RLock()
	defer c.RUnlock()
	out := make(map[K]V, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[uint64][]float32) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
