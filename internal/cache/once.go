package cache

import "sync"

// Once holds a value that is loaded at most once per process.
// The outcome of the load, value or error, is permanent.
type Once[T any] struct {
	load func() (T, error)
}

// NewOnce creates a Once around load
func NewOnce[T any](load func() (T, error)) *Once[T] {
	return &Once[T]{load: sync.OnceValues(load)}
}

// Get returns the loaded value, running the load on first use
func (o *Once[T]) Get() (T, error) {
	return o.load()
}
