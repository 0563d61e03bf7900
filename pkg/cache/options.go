package cache

import (
	"github.com/c360/ruleflow/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
// Statistics are always collected and are not configurable here.
type cacheOptions[V any] struct {
	// When set, cache activity is also exported as Prometheus metrics.
	metricsReg *metric.MetricsRegistry

	// metricsPrefix becomes the component label on exported metrics.
	metricsPrefix string

	// evictCallback is called with each entry removed by expiry or Delete.
	evictCallback EvictCallback[V]
}

// WithMetrics enables Prometheus metrics export for cache activity.
// Ignored if registry is nil or prefix is empty.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked with the key and value of
// each evicted entry.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
