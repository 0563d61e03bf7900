package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// testBasicOperations tests basic cache operations.
func testBasicOperations(t *testing.T, cache Cache[string]) {
	// Get on empty cache
	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss, got value: %s", value)
	}

	// Set and Get
	isNew, err := cache.Set("key1", "value1")
	if err != nil {
		t.Fatalf("Unexpected error setting key: %v", err)
	}
	if !isNew {
		t.Error("Expected new entry creation")
	}

	if value, exists := cache.Get("key1"); !exists || value != "value1" {
		t.Errorf("Expected 'value1', got value: %s, exists: %t", value, exists)
	}

	// Update
	isNew, err = cache.Set("key1", "value1_updated")
	if err != nil {
		t.Fatalf("Unexpected error updating key: %v", err)
	}
	if isNew {
		t.Error("Expected existing entry update")
	}

	if value, exists := cache.Get("key1"); !exists || value != "value1_updated" {
		t.Errorf("Expected 'value1_updated', got value: %s, exists: %t", value, exists)
	}

	// Delete
	deleted, err := cache.Delete("key1")
	if err != nil {
		t.Fatalf("Unexpected error deleting key: %v", err)
	}
	if !deleted {
		t.Error("Expected successful deletion")
	}

	deleted, err = cache.Delete("key1")
	if err != nil {
		t.Fatalf("Unexpected error deleting non-existent key: %v", err)
	}
	if deleted {
		t.Error("Expected deletion failure for non-existent key")
	}

	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss after deletion, got value: %s", value)
	}
}

// testSizeOperations tests cache size tracking.
func testSizeOperations(t *testing.T, cache Cache[string]) {
	if cache.Size() != 0 {
		t.Errorf("Expected size 0, got %d", cache.Size())
	}

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	if cache.Size() != 2 {
		t.Errorf("Expected size 2, got %d", cache.Size())
	}

	_, _ = cache.Delete("key1")

	if cache.Size() != 1 {
		t.Errorf("Expected size 1, got %d", cache.Size())
	}
}

// testKeysOperation tests cache key listing.
func testKeysOperation(t *testing.T, cache Cache[string]) {
	if len(cache.Keys()) != 0 {
		t.Errorf("Expected no keys, got %v", cache.Keys())
	}

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	keys := cache.Keys()
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(keys))
	}

	keyMap := make(map[string]bool)
	for _, key := range keys {
		keyMap[key] = true
	}

	if !keyMap["key1"] || !keyMap["key2"] {
		t.Errorf("Expected keys 'key1' and 'key2', got %v", keys)
	}
}

// testClearOperation tests cache clearing.
func testClearOperation(t *testing.T, cache Cache[string]) {
	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	_ = cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", cache.Size())
	}

	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss after clear, got value: %s", value)
	}
}

// testSuite runs the common cache tests.
func testSuite(t *testing.T, createCache func() Cache[string]) {
	t.Run("BasicOperations", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testBasicOperations(t, cache)
	})

	t.Run("Size", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testSizeOperations(t, cache)
	})

	t.Run("Keys", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testKeysOperation(t, cache)
	})

	t.Run("Clear", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testClearOperation(t, cache)
	})
}

func TestTTLCache(t *testing.T) {
	testSuite(t, func() Cache[string] {
		cache, err := NewTTL[string](context.Background(), 10*time.Second, 5*time.Second)
		if err != nil {
			panic(err)
		}
		return cache
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		cache, err := NewTTL[string](context.Background(), 100*time.Millisecond, 50*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")

		if value, exists := cache.Get("key1"); !exists || value != "value1" {
			t.Error("Expected key1 to exist immediately after set")
		}

		time.Sleep(150 * time.Millisecond)

		if _, exists := cache.Get("key1"); exists {
			t.Error("Expected key1 to be expired")
		}
	})

	t.Run("SetResetsExpiry", func(t *testing.T) {
		cache, err := NewTTL[string](context.Background(), 100*time.Millisecond, 1*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")
		time.Sleep(60 * time.Millisecond)
		_, _ = cache.Set("key1", "value2")
		time.Sleep(60 * time.Millisecond)

		// 120ms after the first set but only 60ms after the second
		if value, exists := cache.Get("key1"); !exists || value != "value2" {
			t.Errorf("Expected updated entry to survive, got value: %s, exists: %t", value, exists)
		}
	})

	t.Run("BackgroundCleanup", func(t *testing.T) {
		cache, err := NewTTL[string](context.Background(), 50*time.Millisecond, 25*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")
		_, _ = cache.Set("key2", "value2")

		if cache.Size() != 2 {
			t.Errorf("Expected size 2, got %d", cache.Size())
		}

		// Wait for the sweep, without touching Get
		time.Sleep(100 * time.Millisecond)

		if cache.Size() != 0 {
			t.Errorf("Expected size 0 after cleanup, got %d", cache.Size())
		}
	})

	t.Run("ContextCancellationStopsCleanup", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cache, err := NewTTL[string](ctx, 50*time.Millisecond, 25*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}

		cancel()
		time.Sleep(50 * time.Millisecond)

		// Close must not hang once the goroutine exited via ctx
		if err := cache.Close(); err != nil {
			t.Errorf("Close after context cancellation failed: %v", err)
		}
	})

	t.Run("EmptyKeyRejected", func(t *testing.T) {
		cache, err := NewTTL[string](context.Background(), 1*time.Second, 500*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		if _, err := cache.Set("", "value"); err == nil {
			t.Error("Expected error for empty key on Set")
		}
		if _, err := cache.Delete(""); err == nil {
			t.Error("Expected error for empty key on Delete")
		}
	})
}

func TestNoopCache(t *testing.T) {
	cache := NewNoop[string]()
	defer cache.Close()

	isNew, err := cache.Set("key1", "value1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if isNew {
		t.Error("Noop cache should never report a new entry")
	}

	if _, exists := cache.Get("key1"); exists {
		t.Error("Noop cache should always miss")
	}

	if cache.Size() != 0 {
		t.Errorf("Expected size 0, got %d", cache.Size())
	}
	if cache.Keys() != nil {
		t.Errorf("Expected nil keys, got %v", cache.Keys())
	}
	if cache.Stats() != nil {
		t.Error("Expected nil stats for noop cache")
	}
}

// TestConcurrency tests thread safety under mixed operations.
func TestConcurrency(t *testing.T) {
	cache, err := NewTTL[string](context.Background(), 1*time.Second, 500*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	const numGoroutines = 10
	const numOperations = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()

			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key%d-%d", id, j)
				value := fmt.Sprintf("value%d-%d", id, j)

				_, _ = cache.Set(key, value)

				if retrievedValue, exists := cache.Get(key); exists && retrievedValue != value {
					t.Errorf("Expected %s, got %s", value, retrievedValue)
				}

				if j%10 == 0 {
					_, _ = cache.Delete(key)
				}
			}
		}(i)
	}

	wg.Wait()
}

// TestEvictCallback tests the eviction callback on expiry and delete.
func TestEvictCallback(t *testing.T) {
	t.Run("ExpiryEviction", func(t *testing.T) {
		var evictedKeys []string
		var mu sync.Mutex

		cache, err := NewTTL[string](
			context.Background(),
			50*time.Millisecond,
			25*time.Millisecond,
			WithEvictionCallback[string](func(key string, _ string) {
				mu.Lock()
				evictedKeys = append(evictedKeys, key)
				mu.Unlock()
			}),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")

		// Wait for expiration and cleanup
		time.Sleep(100 * time.Millisecond)

		mu.Lock()
		if len(evictedKeys) != 1 || evictedKeys[0] != "key1" {
			t.Errorf("Expected evicted keys [key1], got %v", evictedKeys)
		}
		mu.Unlock()
	})

	t.Run("ClearEviction", func(t *testing.T) {
		var evicted int
		var mu sync.Mutex

		cache, err := NewTTL[string](
			context.Background(),
			1*time.Second,
			500*time.Millisecond,
			WithEvictionCallback[string](func(string, string) {
				mu.Lock()
				evicted++
				mu.Unlock()
			}),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")
		_, _ = cache.Set("key2", "value2")

		_ = cache.Clear()

		mu.Lock()
		if evicted != 2 {
			t.Errorf("Expected 2 evictions on clear, got %d", evicted)
		}
		mu.Unlock()
	})

	t.Run("CallbackMayReenterCache", func(t *testing.T) {
		var cache Cache[string]

		cache, err := NewTTL[string](
			context.Background(),
			1*time.Second,
			500*time.Millisecond,
			WithEvictionCallback[string](func(key string, _ string) {
				// Must not deadlock
				_ = cache.Size()
			}),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		_, _ = cache.Set("key1", "value1")

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = cache.Clear()
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Clear deadlocked when eviction callback re-entered cache")
		}
	})
}

// TestStatistics tests the statistics counters and ratios.
func TestStatistics(t *testing.T) {
	cache, err := NewTTL[string](context.Background(), 10*time.Second, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	stats := cache.Stats()
	if stats == nil {
		t.Fatal("Expected stats to be enabled")
	}

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")
	cache.Get("key1") // hit
	cache.Get("key3") // miss
	_, _ = cache.Delete("key2")

	if stats.Sets() != 2 {
		t.Errorf("Expected 2 sets, got %d", stats.Sets())
	}

	if stats.Hits() != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits())
	}

	if stats.Misses() != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses())
	}

	if stats.Deletes() != 1 {
		t.Errorf("Expected 1 delete, got %d", stats.Deletes())
	}

	if stats.HitRatio() != 0.5 {
		t.Errorf("Expected hit ratio 0.5, got %f", stats.HitRatio())
	}

	if stats.CurrentSize() != 1 {
		t.Errorf("Expected current size 1, got %d", stats.CurrentSize())
	}

	summary := stats.Summary()
	if summary.Hits != 1 || summary.Misses != 1 {
		t.Errorf("Summary mismatch: %+v", summary)
	}
}
