package cmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShards is the shard count used by New. The maps this package
// backs hold at most a few dozen keys, so the default leans small;
// NewWithShards tunes it when contention profiles say otherwise.
const DefaultShards = 16

// Map is a hash map split across independently locked shards. The zero
// value is not usable; construct with New or NewWithShards.
type Map[K comparable, V any] struct {
	seed   maphash.Seed
	mask   uint64
	shards []shard[K, V]
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a map with DefaultShards shards.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShards)
}

// NewWithShards creates a map with at least n shards. The count is
// rounded up to a power of two so shard selection is a mask.
func NewWithShards[K comparable, V any](n int) *Map[K, V] {
	if n < 1 {
		n = 1
	}
	size := 1
	for size < n {
		size <<= 1
	}

	m := &Map[K, V]{
		seed:   maphash.MakeSeed(),
		mask:   uint64(size - 1),
		shards: make([]shard[K, V], size),
	}
	for i := range m.shards {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return &m.shards[maphash.Comparable(m.seed, key)&m.mask]
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key, replacing any existing entry.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// GetOrSet returns the existing value for key, or stores and returns
// value when the key is absent. The boolean reports whether an
// existing entry was found. Callers racing on the same key all
// receive the entry the winner stored.
func (m *Map[K, V]) GetOrSet(key K, value V) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok {
		return existing, true
	}
	s.items[key] = value
	return value, false
}

// Delete removes key. Removing an absent key is a no-op.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Pop removes key and returns the value it held.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Count returns the number of entries. The count is a snapshot; other
// goroutines may change the map while shards are being summed.
func (m *Map[K, V]) Count() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.items = make(map[K]V)
		s.mu.Unlock()
	}
}

// Range calls fn for each entry until fn returns false. Each shard is
// read-locked only while its own entries are visited, so fn must not
// call back into the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns a snapshot of the keys in no particular order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}
