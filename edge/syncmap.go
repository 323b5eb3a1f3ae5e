package edge

import (
	"sync"
)

// syncMap is a typed wrapper around sync.Map for our specific use case
type syncMap[K comparable, V any] struct {
	m sync.Map
}

// load returns the value for the key, if present.
func (sm *syncMap[K, V]) load(key K) (V, bool) {
	loaded, ok := sm.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return loaded.(V), true
}

// loadOrStore returns the existing value for the key if present.
// Otherwise, it calls the factory function to create a new value, stores it, and returns it.
// This avoids creating the value unless it's actually needed.
func (sm *syncMap[K, V]) loadOrStore(key K, getter func() V) V {
	if loaded, ok := sm.m.Load(key); ok {
		return loaded.(V)
	}
	// Only create the value if we didn't find an existing one
	value := getter()
	actual, _ := sm.m.LoadOrStore(key, value)
	return actual.(V)
}

// rangeFunc calls f for each key and value. If f returns false, iteration stops.
func (sm *syncMap[K, V]) rangeFunc(f func(key K, value V) bool) {
	sm.m.Range(func(k, v any) bool {
		return f(k.(K), v.(V))
	})
}

func (sm *syncMap[K, V]) count() int {
	count := 0
	sm.m.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// delete removes a key from the map
func (sm *syncMap[K, V]) delete(key K) {
	sm.m.Delete(key)
}

// clear removes all keys from the map
func (sm *syncMap[K, V]) clear() {
	sm.m.Clear()
}
