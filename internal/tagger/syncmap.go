package tagger

import "sync"

// SyncMap is a type-safe concurrent map used for the per-path write locks.
// A RWMutex-guarded map beats sync.Map here: reads dominate and the key set
// is small (one entry per part file).
type SyncMap[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

// NewSyncMap creates a new type-safe concurrent map.
func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{
		m: make(map[K]V),
	}
}

// Load returns the value stored in the map for a key, or the zero value
// if no value is present. The ok result indicates whether value was found.
func (sm *SyncMap[K, V]) Load(key K) (value V, ok bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	value, ok = sm.m[key]
	return
}

// Store sets the value for a key.
func (sm *SyncMap[K, V]) Store(key K, value V) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.m[key] = value
}

// LoadOrStore returns the existing value for the key if present.
// Otherwise, it stores and returns the given value.
// The loaded result is true if the value was loaded, false if stored.
func (sm *SyncMap[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	sm.mu.RLock()
	actual, loaded = sm.m[key]
	sm.mu.RUnlock()
	if loaded {
		return actual, true
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Another goroutine may have stored between the two locks.
	actual, loaded = sm.m[key]
	if loaded {
		return actual, true
	}
	sm.m[key] = value
	return value, false
}

// Len returns the number of entries.
func (sm *SyncMap[K, V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.m)
}
