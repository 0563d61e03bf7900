package store

import (
	"context"
	"time"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/metric"
	"github.com/c360/ruleflow/pkg/cache"
)

// listKey is the single cache key the decorator uses. The cached value is
// the full rule set, so invalidation is whole-set rather than per rule.
const listKey = "rules"

// Cached decorates a Store with a TTL cache on List. The service calls
// List once per event, so a backend on NATS KV or SQLite would otherwise
// pay a round trip per event; with the cache the rule set is re-read at
// most once per TTL. Writes invalidate, so a Put or Delete through the
// same decorator is visible on the next List.
type Cached struct {
	backend Store
	cache   cache.Cache[[]automation.Rule]
}

// NewCached wraps backend with a List cache holding entries for ttl.
// A ttl of zero or less disables caching: every List goes to the backend.
// The context bounds the cache's cleanup goroutine; registry may be nil.
func NewCached(ctx context.Context, backend Store, ttl time.Duration, registry *metric.MetricsRegistry) (*Cached, error) {
	if backend == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Cached", "NewCached", "provide a backend store")
	}

	listCache := cache.NewNoop[[]automation.Rule]()
	if ttl > 0 {
		var err error
		listCache, err = cache.NewTTL(ctx, ttl, ttl,
			cache.WithMetrics[[]automation.Rule](registry, "rule_store"))
		if err != nil {
			return nil, err
		}
	}

	return &Cached{backend: backend, cache: listCache}, nil
}

// List returns the cached rule set, reading through to the backend when
// the cache is cold or expired. Callers get a fresh slice either way.
func (c *Cached) List(ctx context.Context) ([]automation.Rule, error) {
	if rules, ok := c.cache.Get(listKey); ok {
		return append([]automation.Rule(nil), rules...), nil
	}

	rules, err := c.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	_, _ = c.cache.Set(listKey, append([]automation.Rule(nil), rules...))
	return rules, nil
}

// Get reads through to the backend. Single-rule reads sit outside the
// event path, so they are not worth serving stale.
func (c *Cached) Get(ctx context.Context, id string) (automation.Rule, error) {
	return c.backend.Get(ctx, id)
}

// Put writes through to the backend and invalidates the cached list.
func (c *Cached) Put(ctx context.Context, rule *automation.Rule) error {
	if err := c.backend.Put(ctx, rule); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Delete removes through to the backend and invalidates the cached list.
func (c *Cached) Delete(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate drops the cached rule set so the next List hits the backend.
// Useful when rules are edited out of band, for example directly in the
// KV bucket.
func (c *Cached) Invalidate() {
	_, _ = c.cache.Delete(listKey)
}

// Close releases the cache. The backend stays open; its lifecycle belongs
// to whoever constructed it.
func (c *Cached) Close() error {
	return c.cache.Close()
}
