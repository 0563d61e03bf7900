// Package buffer provides thread-safe circular buffers with configurable
// overflow policies, built-in statistics, and optional Prometheus metrics.
//
// # Overview
//
// Buffers decouple producers from consumers in concurrent pipelines. They
// are generic over the item type, safe for concurrent use, and track their
// own activity without any configuration.
//
// # Quick Start
//
// Basic buffer creation:
//
//	buf, err := buffer.NewCircularBuffer[int](1000)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = buf.Write(42)
//	value, ok := buf.Read()
//
// With overflow policy and metrics:
//
//	buf, err := buffer.NewCircularBuffer[[]byte](256,
//		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
//		buffer.WithMetrics[[]byte](registry, "outcome_feed"),
//	)
//
// # Overflow Policies
//
// Three behaviors are available when the buffer reaches capacity:
//
//   - DropOldest: remove the oldest item to make room (default)
//   - DropNewest: reject new items while full
//   - Block: Write waits until space is available
//
// DropOldest suits replay windows, where only the most recent items matter.
// A feed that replays recent activity to newly connected clients keeps the
// last N entries and silently ages out the rest:
//
//	replay, _ := buffer.NewCircularBuffer[[]byte](256,
//		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
//	)
//
// Block suits pipelines that must not lose items. Use WriteWithContext or
// WriteWithTimeout on the concrete type to bound the wait:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	err := buf.WriteWithContext(ctx, item)
//
// # Drop Callbacks
//
// WithDropCallback registers a function invoked with each dropped item.
// Callbacks run outside the buffer lock, so they may inspect the buffer or
// record the loss elsewhere:
//
//	buf, _ := buffer.NewCircularBuffer[[]byte](256,
//		buffer.WithOverflowPolicy[[]byte](buffer.DropNewest),
//		buffer.WithDropCallback[[]byte](func(item []byte) {
//			log.Printf("feed full, dropped %d bytes", len(item))
//		}),
//	)
//
// # Statistics and Metrics
//
// Statistics are always collected via atomic counters and available through
// buf.Stats(). They include raw counts plus derived values (throughput,
// drop rate, utilization) and work without any external infrastructure.
//
// Prometheus metrics are opt-in via WithMetrics(registry, prefix). The
// prefix becomes the component label, so multiple buffers can share a
// registry:
//
//	ruleflow_buffer_writes_total{component="outcome_feed"}
//	ruleflow_buffer_size{component="outcome_feed"}
//	ruleflow_buffer_utilization{component="outcome_feed"}
//
// Both trackers record independently: statistics serve programmatic access
// and tests, metrics serve dashboards and alerting.
//
// # Thread Safety
//
// All operations are safe for concurrent producers and consumers. Internal
// state is protected by a sync.RWMutex; the Block policy waits on
// sync.Cond. Close wakes all blocked writers, and writes after Close
// return an error wrapping errors.ErrAlreadyStopped.
package buffer
