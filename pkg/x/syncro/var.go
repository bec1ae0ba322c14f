package syncro

import (
	"sync"
)

// Var holds a single value behind a read/write mutex.  The zero value is ready to use and
// holds the zero value of T.
type Var[T any] struct {
	value T
	lock  sync.RWMutex
}

// Set replaces the value.
func (sv *Var[T]) Set(value T) {
	sv.lock.Lock()
	defer sv.lock.Unlock()
	sv.value = value
}

// Get returns a copy of the value.
func (sv *Var[T]) Get() T {
	sv.lock.RLock()
	defer sv.lock.RUnlock()
	return sv.value
}

// WorkWith runs f with exclusive access to the value, which f may modify through the pointer.
func (sv *Var[T]) WorkWith(f func(*T)) {
	sv.lock.Lock()
	defer sv.lock.Unlock()
	f(&sv.value)
}

// WorkWithReadOnly runs f with shared access to the value.  f must not modify it.
func (sv *Var[T]) WorkWithReadOnly(f func(T)) {
	sv.lock.RLock()
	defer sv.lock.RUnlock()
	f(sv.value)
}
