package cache

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"
)

func newBenchCache(b *testing.B) Cache[string] {
	cache, err := NewTTL[string](context.Background(), 5*time.Minute, 1*time.Minute)
	if err != nil {
		b.Fatal(err)
	}
	return cache
}

// BenchmarkCacheGet benchmarks Get against a pre-populated cache.
func BenchmarkCacheGet(b *testing.B) {
	cache := newBenchCache(b)
	defer cache.Close()

	for i := 0; i < 1000; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("key%d", rand.Intn(1000))
			cache.Get(key)
		}
	})
}

// BenchmarkCacheSet benchmarks Set throughput.
func BenchmarkCacheSet(b *testing.B) {
	cache := newBenchCache(b)
	defer cache.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key%d", i)
			value := fmt.Sprintf("value%d", i)
			_, _ = cache.Set(key, value)
			i++
		}
	})
}

// BenchmarkCacheMixed benchmarks an interleaved Get/Set/Delete workload.
func BenchmarkCacheMixed(b *testing.B) {
	cache := newBenchCache(b)
	defer cache.Close()

	for i := 0; i < 500; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 500
		for pb.Next() {
			switch rand.Intn(5) {
			case 0, 1: // 40% reads
				key := fmt.Sprintf("key%d", rand.Intn(1000))
				cache.Get(key)
			case 2, 3: // 40% writes
				key := fmt.Sprintf("key%d", i)
				value := fmt.Sprintf("value%d", i)
				_, _ = cache.Set(key, value)
				i++
			case 4: // 20% deletes
				key := fmt.Sprintf("key%d", rand.Intn(1000))
				_, _ = cache.Delete(key)
			}
		}
	})
}

// BenchmarkTTLCleanup benchmarks Get over a cache full of expired entries.
func BenchmarkTTLCleanup(b *testing.B) {
	cache, err := NewTTL[string](context.Background(), 1*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	for i := 0; i < 1000; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	// Let the entries expire
	time.Sleep(20 * time.Millisecond)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(fmt.Sprintf("key%d", i%1000))
	}
}

// BenchmarkCacheReadHeavy simulates a read-heavy workload (90% reads, 10% writes).
func BenchmarkCacheReadHeavy(b *testing.B) {
	cache := newBenchCache(b)
	defer cache.Close()

	for i := 0; i < 1000; i++ {
		_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if rand.Intn(10) == 0 { // 10% writes
				key := fmt.Sprintf("key%d", rand.Intn(2000))
				_, _ = cache.Set(key, "updated_value")
			} else { // 90% reads
				key := fmt.Sprintf("key%d", rand.Intn(1000))
				cache.Get(key)
			}
		}
	})
}
