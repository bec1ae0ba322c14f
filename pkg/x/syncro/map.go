package syncro

import (
	"sync"
)

// Map is a thread-safe generic map type
type Map[K comparable, V any] struct {
	value map[K]V
	lock  sync.RWMutex
}

func (m *Map[K, V]) createIfNil() {
	if m.value == nil {
		m.value = make(map[K]V)
	}
}

// Get a value from the map.  If it exists, returns the value and true; otherwise, returns the zero value and false.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	v, ok := m.value[key]
	return v, ok
}

// Set stores a value into the map
func (m *Map[K, V]) Set(key K, value V) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.createIfNil()
	m.value[key] = value
}

// Delete removes a value from the map.  It is not an error to delete a nonexistent key.
func (m *Map[K, V]) Delete(key K) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.createIfNil()
	delete(m.value, key)
}

// Len returns the number of items in the map
func (m *Map[K, V]) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.value)
}

// Range iterates over the map, calling f for each key/value pair.  Iteration stops if f returns false.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for k, v := range m.value {
		if !f(k, v) {
			break
		}
	}
}
