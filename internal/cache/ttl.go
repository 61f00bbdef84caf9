// Package cache provides the process-wide caches used for configuration and key material.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for key
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// TTL is a keyed cache whose entries expire after a fixed duration.
// Concurrent misses for the same key share a single fetch, and an expired
// entry is never returned: callers wait for the refresh instead.
type TTL[V any] struct {
	ttl     time.Duration
	fetch   FetchFunc[V]
	now     func() time.Time
	observe func(key string, err error)

	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group
}

// Option configures a TTL cache
type Option func(*options)

type options struct {
	now     func() time.Time
	observe func(key string, err error)
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithFetchObserver registers a callback invoked after every fetch
func WithFetchObserver(fn func(key string, err error)) Option {
	return func(o *options) { o.observe = fn }
}

// NewTTL creates a TTL cache backed by fetch
func NewTTL[V any](ttl time.Duration, fetch FetchFunc[V], opts ...Option) *TTL[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &TTL[V]{
		ttl:     ttl,
		fetch:   fetch,
		now:     o.now,
		observe: o.observe,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the live value for key, fetching it when absent or expired
func (c *TTL[V]) Get(ctx context.Context, key string) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	// The fetch outlives the caller that started it; it is shared by every waiter.
	fetchCtx := context.WithoutCancel(ctx)
	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := c.fetch(fetchCtx, key)
		if c.observe != nil {
			c.observe(key, err)
		}
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[V]{value: v, fetchedAt: c.now()}
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	v, ok := res.(V)
	if !ok {
		var zero V
		return zero, fmt.Errorf("cache: unexpected value type %T", res)
	}
	return v, nil
}

// size returns the number of cached entries, live or expired
func (c *TTL[V]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *TTL[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}
