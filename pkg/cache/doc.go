// Package cache provides a generic, thread-safe TTL cache with always-on
// statistics and optional Prometheus metrics.
//
// # Overview
//
// Entries expire a fixed time-to-live after their last Set. Expired entries
// are dropped lazily on Get and swept by a background cleanup goroutine, so
// a rarely-read cache does not hold stale values indefinitely.
//
// # Quick Start
//
//	c, err := cache.NewTTL[automation.Rule](ctx, 30*time.Second, 10*time.Second)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	c.Set("rule.overdue-reminder", rule)
//	rule, ok := c.Get("rule.overdue-reminder")
//
// The cleanup goroutine stops when ctx is cancelled or Close is called.
//
// With metrics and an eviction callback:
//
//	c, err := cache.NewTTL[automation.Rule](ctx, ttl, interval,
//		cache.WithMetrics[automation.Rule](registry, "rule_cache"),
//		cache.WithEvictionCallback[automation.Rule](func(key string, r automation.Rule) {
//			log.Printf("rule %s aged out", key)
//		}),
//	)
//
// # Disabled Caching
//
// NewNoop returns a cache that stores nothing and always misses. Callers
// that cache behind a configuration flag can swap it in without branching
// at every call site:
//
//	var c cache.Cache[automation.Rule]
//	if cfg.RuleCacheTTL > 0 {
//		c, err = cache.NewTTL[automation.Rule](ctx, cfg.RuleCacheTTL, cfg.RuleCacheTTL/2)
//	} else {
//		c = cache.NewNoop[automation.Rule]()
//	}
//
// # Statistics and Metrics
//
// Statistics are always collected via atomic counters and available through
// c.Stats(): hits, misses, sets, deletes, evictions, plus derived values
// (hit ratio, requests per second). The noop cache returns nil Stats.
//
// Prometheus metrics are opt-in via WithMetrics(registry, prefix). The
// prefix becomes the component label, so multiple caches can share a
// registry:
//
//	ruleflow_cache_hits_total{component="rule_cache"}
//	ruleflow_cache_evictions_total{component="rule_cache"}
//	ruleflow_cache_size{component="rule_cache"}
//
// # Thread Safety
//
// All operations are safe for concurrent use. Eviction callbacks run
// outside the cache lock, so they may call back into the cache.
package cache
