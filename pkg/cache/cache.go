// Package cache provides a generic, thread-safe TTL cache with always-on
// statistics and optional Prometheus metrics.
package cache

import (
	"github.com/c360/ruleflow/errors"
)

// Cache is the interface cache implementations satisfy.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the zero value and false on a miss.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry
	// was created, false if an existing entry was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns all unexpired keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics, or nil for the noop cache.
	Stats() *Statistics

	// Close shuts down the cache and stops its background cleanup.
	Close() error
}

// EvictCallback is invoked with the key and value of each evicted entry.
type EvictCallback[V any] func(key string, value V)

// NewNoop creates a cache that stores nothing and always misses.
// Used when caching is disabled via configuration.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{}
}

// noopCache is a cache implementation that does nothing.
type noopCache[V any] struct{}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Delete(_ string) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Clear() error {
	return nil
}

func (c *noopCache[V]) Size() int {
	return 0
}

func (c *noopCache[V]) Keys() []string {
	return nil
}

func (c *noopCache[V]) Stats() *Statistics {
	return nil
}

func (c *noopCache[V]) Close() error {
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Cache", "validateKey", "key cannot be empty")
	}
	return nil
}
