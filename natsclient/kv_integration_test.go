//go:build integration

package natsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore_UpdateWithRetry(t *testing.T) {
	// Use real NATS via testcontainer
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client

	ctx := context.Background()

	// Create real KV bucket
	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "rules-cas",
		Description: "Rule storage bucket for CAS operations",
		History:     5,
	})
	require.NoError(t, err)

	// Create KVStore with real bucket
	kvStore := client.NewKVStore(bucket)

	t.Run("successful update", func(t *testing.T) {
		// Create initial value
		_, err := kvStore.Put(ctx, "rule.welcome-email", []byte("initial"))
		require.NoError(t, err)

		// Update with retry should succeed
		err = kvStore.UpdateWithRetry(ctx, "rule.welcome-email", func(current []byte) ([]byte, error) {
			assert.Equal(t, "initial", string(current))
			return []byte("updated"), nil
		})
		assert.NoError(t, err)

		// Verify update
		entry, err := kvStore.Get(ctx, "rule.welcome-email")
		require.NoError(t, err)
		assert.Equal(t, "updated", string(entry.Value))
	})

	t.Run("retry on conflict", func(t *testing.T) {
		key := "rule.conflict"
		_, err := kvStore.Put(ctx, key, []byte("v1"))
		require.NoError(t, err)

		updateCount := 0
		err = kvStore.UpdateWithRetry(ctx, key, func(_ []byte) ([]byte, error) {
			updateCount++
			if updateCount == 1 {
				// Simulate concurrent update
				_, _ = kvStore.Put(ctx, key, []byte("concurrent"))
			}
			return []byte("final"), nil
		})

		// Should succeed after retry
		assert.NoError(t, err)
		assert.Greater(t, updateCount, 1, "Should have retried")

		entry, _ := kvStore.Get(ctx, key)
		assert.Equal(t, "final", string(entry.Value))
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		key := "rule.max-retry"
		_, err := kvStore.Put(ctx, key, []byte("initial"))
		require.NoError(t, err)

		// Create a store with minimal retries
		limitedStore := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxRetries = 1
			opts.RetryDelay = 1 * time.Millisecond
		})

		attempts := 0
		err = limitedStore.UpdateWithRetry(ctx, key, func(_ []byte) ([]byte, error) {
			attempts++
			// Always cause conflict by updating outside
			_, _ = kvStore.Put(ctx, key, []byte("interfering"))
			return []byte("never-succeeds"), nil
		})

		assert.Equal(t, ErrKVMaxRetriesExceeded, err)
		assert.Equal(t, 2, attempts, "Should try initial + 1 retry")
	})
}

func TestKVStore_UpdateJSON(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "rules-json",
	})
	require.NoError(t, err)

	kvStore := client.NewKVStore(bucket)

	t.Run("update JSON object", func(t *testing.T) {
		key := "rule.overdue-reminder"

		// Create initial JSON
		initial := map[string]any{"enabled": true, "delay_minutes": 30}
		data, _ := json.Marshal(initial)
		_, err := kvStore.Put(ctx, key, data)
		require.NoError(t, err)

		// Update using UpdateJSON
		err = kvStore.UpdateJSON(ctx, key, func(current map[string]any) error {
			assert.Equal(t, true, current["enabled"])
			assert.Equal(t, float64(30), current["delay_minutes"])

			current["enabled"] = false
			current["version"] = 2
			return nil
		})
		assert.NoError(t, err)

		// Verify update
		entry, _ := kvStore.Get(ctx, key)
		var result map[string]any
		json.Unmarshal(entry.Value, &result)
		assert.Equal(t, false, result["enabled"])
		assert.Equal(t, float64(2), result["version"])
	})

	t.Run("handle empty initial value", func(t *testing.T) {
		key := "rule.brand-new"

		// UpdateJSON on non-existent key should create it
		err := kvStore.UpdateJSON(ctx, key, func(current map[string]any) error {
			// Should be called with empty map for non-existent key
			assert.Empty(t, current)
			current["created"] = true
			current["version"] = 1
			return nil
		})
		assert.NoError(t, err)

		// Verify it was created
		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)
		var result map[string]any
		json.Unmarshal(entry.Value, &result)
		assert.Equal(t, true, result["created"])
		assert.Equal(t, float64(1), result["version"])
	})
}

func TestKVStore_ErrorDetection(t *testing.T) {
	// Test with real NATS errors
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "rules-errors",
	})
	require.NoError(t, err)

	kvStore := client.NewKVStore(bucket)

	t.Run("not found error", func(t *testing.T) {
		_, err := kvStore.Get(ctx, "rule.missing")
		assert.True(t, IsKVNotFoundError(err))
		assert.Equal(t, ErrKVKeyNotFound, err)
	})

	t.Run("key exists error", func(t *testing.T) {
		key := "rule.duplicate"
		_, err := kvStore.Create(ctx, key, []byte("value"))
		require.NoError(t, err)

		// Try to create again
		_, err = kvStore.Create(ctx, key, []byte("value2"))
		assert.True(t, IsKVConflictError(err))
		assert.Equal(t, ErrKVKeyExists, err)
	})

	t.Run("revision mismatch error", func(t *testing.T) {
		key := "rule.stale"
		rev1, err := kvStore.Put(ctx, key, []byte("v1"))
		require.NoError(t, err)

		// Update with wrong revision
		_, err = kvStore.Update(ctx, key, []byte("v2"), rev1+999)
		assert.True(t, IsKVConflictError(err))
		assert.Equal(t, ErrKVRevisionMismatch, err)
	})
}

func TestKVStore_Watch(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "rules-watch",
	})
	require.NoError(t, err)

	kvStore := client.NewKVStore(bucket)

	// Create watcher
	watcher, err := kvStore.Watch(ctx, "rule.*")
	require.NoError(t, err)
	defer watcher.Stop()

	// Make changes
	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = kvStore.Put(ctx, "rule.welcome-email", []byte("value1"))
		_, _ = kvStore.Put(ctx, "rule.overdue-reminder", []byte("value2"))
	}()

	// Receive updates
	updates := 0
	timeout := time.After(1 * time.Second)

	for updates < 2 {
		select {
		case entry := <-watcher.Updates():
			if entry != nil {
				updates++
				assert.Contains(t, entry.Key(), "rule.")
			}
		case <-timeout:
			t.Fatal("Timeout waiting for watch updates")
		}
	}

	assert.Equal(t, 2, updates)
}

func TestKVStore_BasicOperations(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "rules-basic",
	})
	require.NoError(t, err)

	kvStore := client.NewKVStore(bucket)

	t.Run("put and get", func(t *testing.T) {
		key := "rule.basic"
		value := []byte("basic-value")

		// Put
		rev, err := kvStore.Put(ctx, key, value)
		require.NoError(t, err)
		assert.Greater(t, rev, uint64(0))

		// Get
		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, entry.Key)
		assert.Equal(t, value, entry.Value)
		assert.Equal(t, rev, entry.Revision)
	})

	t.Run("create new key", func(t *testing.T) {
		key := "rule.created"
		value := []byte("create-value")

		// Create should succeed
		rev, err := kvStore.Create(ctx, key, value)
		require.NoError(t, err)
		assert.Greater(t, rev, uint64(0))

		// Verify it exists
		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, entry.Value)
	})

	t.Run("update with revision", func(t *testing.T) {
		key := "rule.versioned"
		initial := []byte("initial")
		updated := []byte("updated")

		// Create initial value
		rev1, err := kvStore.Put(ctx, key, initial)
		require.NoError(t, err)

		// Update with correct revision
		rev2, err := kvStore.Update(ctx, key, updated, rev1)
		require.NoError(t, err)
		assert.Greater(t, rev2, rev1)

		// Verify update
		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, updated, entry.Value)
		assert.Equal(t, rev2, entry.Revision)
	})

	t.Run("delete key", func(t *testing.T) {
		key := "rule.doomed"
		value := []byte("delete-value")

		// Create key
		_, err := kvStore.Put(ctx, key, value)
		require.NoError(t, err)

		// Delete key
		err = kvStore.Delete(ctx, key)
		require.NoError(t, err)

		// Verify it's gone
		_, err = kvStore.Get(ctx, key)
		assert.Equal(t, ErrKVKeyNotFound, err)
	})
}

func TestKVStore_Options(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "rules-options",
	})
	require.NoError(t, err)

	t.Run("custom options", func(t *testing.T) {
		// Create store with custom options
		kvStore := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxRetries = 5
			opts.RetryDelay = 50 * time.Millisecond
			opts.Timeout = 10 * time.Second
		})

		assert.NotNil(t, kvStore)
		assert.Equal(t, 5, kvStore.options.MaxRetries)
		assert.Equal(t, 50*time.Millisecond, kvStore.options.RetryDelay)
		assert.Equal(t, 10*time.Second, kvStore.options.Timeout)
	})

	t.Run("default options", func(t *testing.T) {
		// Create store with default options
		kvStore := client.NewKVStore(bucket)

		defaults := DefaultKVOptions()
		assert.Equal(t, defaults.MaxRetries, kvStore.options.MaxRetries)
		assert.Equal(t, defaults.RetryDelay, kvStore.options.RetryDelay)
		assert.Equal(t, defaults.Timeout, kvStore.options.Timeout)
	})
}

// TestKVStore_ErrorBoundaries tests edge cases and error conditions
func TestKVStore_ErrorBoundaries(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client

	ctx := context.Background()
	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "rules-boundaries",
		Description: "Rule storage error boundaries",
	})
	require.NoError(t, err)

	t.Run("value_size_limits", func(t *testing.T) {
		kv := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxRetries = 3
			opts.RetryDelay = 10 * time.Millisecond
			opts.Timeout = time.Second
			opts.MaxValueSize = 100 // Small limit for testing
		})

		// Try to write value that exceeds limit
		largeValue := make([]byte, 200)
		for i := range largeValue {
			largeValue[i] = 'x'
		}

		err := kv.UpdateWithRetry(ctx, "rule.large", func(_ []byte) ([]byte, error) {
			return largeValue, nil
		})

		// Should fail with validation error
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "value size validation failed")
		assert.Contains(t, err.Error(), "exceeds maximum")

		// Value at the limit should work
		limitValue := make([]byte, 100)
		err = kv.UpdateWithRetry(ctx, "rule.at-limit", func(_ []byte) ([]byte, error) {
			return limitValue, nil
		})
		assert.NoError(t, err)
	})

	t.Run("update_function_errors", func(t *testing.T) {
		kv := client.NewKVStore(bucket)

		// Update function that always fails
		expectedErr := errors.New("custom update error")
		err := kv.UpdateWithRetry(ctx, "rule.erroring", func(_ []byte) ([]byte, error) {
			return nil, expectedErr
		})

		// Should propagate the error with context
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "update function error")
		assert.Contains(t, err.Error(), "custom update error")
	})

	t.Run("concurrent_updates_stress", func(t *testing.T) {
		kv := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxRetries = 20 // High retry count for stress test
			opts.RetryDelay = 5 * time.Millisecond
			opts.Timeout = 5 * time.Second
			opts.UseExponentialBackoff = true
			opts.MaxRetryDelay = 100 * time.Millisecond
		})

		// Initialize counter
		err := kv.UpdateWithRetry(ctx, "counter", func(_ []byte) ([]byte, error) {
			return []byte("0"), nil
		})
		require.NoError(t, err)

		// Launch multiple goroutines to increment counter
		const numGoroutines = 10
		const incrementsPerGoroutine = 5
		var wg sync.WaitGroup

		successCount := int32(0)
		failCount := int32(0)

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < incrementsPerGoroutine; j++ {
					err := kv.UpdateWithRetry(ctx, "counter", func(current []byte) ([]byte, error) {
						// Parse current value
						var val int
						if len(current) > 0 {
							fmt.Sscanf(string(current), "%d", &val)
						}
						// Increment
						val++
						return []byte(fmt.Sprintf("%d", val)), nil
					})
					if err == nil {
						atomic.AddInt32(&successCount, 1)
					} else {
						atomic.AddInt32(&failCount, 1)
						t.Logf("Goroutine %d increment %d failed: %v", id, j, err)
					}
				}
			}(i)
		}

		wg.Wait()

		// Verify final count
		entry, err := kv.Get(ctx, "counter")
		require.NoError(t, err)

		var finalCount int
		fmt.Sscanf(string(entry.Value), "%d", &finalCount)

		// All increments should succeed despite high concurrency
		expectedCount := numGoroutines * incrementsPerGoroutine
		assert.Equal(t, expectedCount, finalCount, "Final counter value mismatch")
		assert.Equal(t, int32(expectedCount), successCount, "Not all updates succeeded")
		assert.Equal(t, int32(0), failCount, "Some updates failed")
	})

	t.Run("nil_and_empty_values", func(t *testing.T) {
		kv := client.NewKVStore(bucket)

		// Test nil value
		err := kv.UpdateWithRetry(ctx, "rule.nil", func(_ []byte) ([]byte, error) {
			return nil, nil
		})
		assert.NoError(t, err)

		entry, err := kv.Get(ctx, "rule.nil")
		require.NoError(t, err)
		assert.Equal(t, 0, len(entry.Value))

		// Test empty slice
		err = kv.UpdateWithRetry(ctx, "rule.empty", func(_ []byte) ([]byte, error) {
			return []byte{}, nil
		})
		assert.NoError(t, err)

		entry, err = kv.Get(ctx, "rule.empty")
		require.NoError(t, err)
		assert.Equal(t, 0, len(entry.Value))

		// Test transition from value to nil
		err = kv.UpdateWithRetry(ctx, "rule.transition", func(_ []byte) ([]byte, error) {
			return []byte("initial"), nil
		})
		require.NoError(t, err)

		err = kv.UpdateWithRetry(ctx, "rule.transition", func(current []byte) ([]byte, error) {
			assert.Equal(t, "initial", string(current))
			return nil, nil
		})
		assert.NoError(t, err)
	})

	t.Run("max_retries_exhaustion", func(t *testing.T) {
		kv := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxRetries = 2 // Low retry count
			opts.RetryDelay = 5 * time.Millisecond
			opts.Timeout = time.Second
		})

		// Create initial value
		_, err := bucket.Create(ctx, "rule.contested", []byte("v1"))
		require.NoError(t, err)

		// Simulate continuous conflicts by updating in background
		stopConflicts := make(chan struct{})
		go func() {
			ticker := time.NewTicker(2 * time.Millisecond)
			defer ticker.Stop()
			counter := 2
			for {
				select {
				case <-stopConflicts:
					return
				case <-ticker.C:
					// Keep updating to cause conflicts
					bucket.Put(ctx, "rule.contested", []byte(fmt.Sprintf("v%d", counter)))
					counter++
				}
			}
		}()

		// Try to update - should exhaust retries
		err = kv.UpdateWithRetry(ctx, "rule.contested", func(_ []byte) ([]byte, error) {
			// Slow update to ensure conflict
			time.Sleep(10 * time.Millisecond)
			return []byte("my-update"), nil
		})

		close(stopConflicts)

		// Should get max retries exceeded
		assert.Error(t, err)
		assert.True(t,
			errors.Is(err, ErrKVMaxRetriesExceeded) ||
				strings.Contains(err.Error(), "max retries exceeded"),
			"Expected max retries error, got: %v", err)
	})

	t.Run("invalid_json_handling", func(t *testing.T) {
		kv := client.NewKVStore(bucket)

		// Put invalid JSON
		_, err := bucket.Put(ctx, "rule.bad-json", []byte("{invalid json}"))
		require.NoError(t, err)

		// Try to update as JSON
		err = kv.UpdateJSON(ctx, "rule.bad-json", func(_ map[string]any) error {
			// Should never reach here
			t.Fatal("UpdateJSON should fail on invalid JSON")
			return nil
		})

		// Should get JSON parse error
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal")
	})

	t.Run("update_deleted_key", func(t *testing.T) {
		kv := client.NewKVStore(bucket)

		// Create and delete a key
		_, err := bucket.Create(ctx, "rule.revived", []byte("value"))
		require.NoError(t, err)

		err = bucket.Delete(ctx, "rule.revived")
		require.NoError(t, err)

		// Try to update deleted key - should treat as new
		err = kv.UpdateWithRetry(ctx, "rule.revived", func(current []byte) ([]byte, error) {
			assert.Nil(t, current, "Deleted key should be treated as nil")
			return []byte("new-value"), nil
		})
		assert.NoError(t, err)

		// Verify it was created
		entry, err := kv.Get(ctx, "rule.revived")
		require.NoError(t, err)
		assert.Equal(t, "new-value", string(entry.Value))
	})
}

func TestKVStore_ErrorHelpers(t *testing.T) {
	t.Run("IsKVNotFoundError", func(t *testing.T) {
		assert.True(t, IsKVNotFoundError(ErrKVKeyNotFound))
		assert.False(t, IsKVNotFoundError(ErrKVKeyExists))
		assert.False(t, IsKVNotFoundError(nil))
	})

	t.Run("IsKVConflictError", func(t *testing.T) {
		assert.True(t, IsKVConflictError(ErrKVRevisionMismatch))
		assert.True(t, IsKVConflictError(ErrKVKeyExists))
		assert.False(t, IsKVConflictError(ErrKVKeyNotFound))
		assert.False(t, IsKVConflictError(nil))
	})
}
