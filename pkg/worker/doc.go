// Package worker provides a generic, bounded worker pool for concurrent processing.
//
// # Overview
//
// Pool[T] runs a fixed number of workers over a bounded queue. Submission is
// non-blocking: when the queue is full, Submit returns ErrQueueFull and the
// item is counted as dropped rather than applying backpressure upstream. In
// this codebase the event ingest path feeds a Pool[automation.Event] so one
// slow dispatch pass never stalls the NATS subscription.
//
// # Quick Start
//
//	pool := worker.NewPool(4, 256, func(ctx context.Context, evt automation.Event) error {
//	    rules, err := rules.List(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    eng.ProcessEvent(ctx, evt, rules)
//	    return nil
//	})
//
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
//	if err := pool.Submit(evt); err != nil {
//	    // ErrQueueFull: drop and count, do not block the subscription
//	}
//
// # Lifecycle
//
// NewPool validates arguments (nil processor panics with ErrNilProcessor).
// Start launches the workers; calling it twice returns ErrPoolAlreadyStarted.
// Stop closes the queue, waits up to the timeout for in-flight work, and
// returns ErrStopTimeout if workers are stuck. Submit before Start returns
// ErrPoolNotStarted; after Stop, ErrPoolStopped. All sentinels are returned
// unwrapped so callers can compare with errors.Is or equality.
//
// # Metrics
//
// With WithMetricsRegistry the pool registers queue depth, utilization,
// submitted/processed/failed/dropped counters, and a processing duration
// histogram labeled by status. Without a registry the pool still keeps
// atomic counters, exposed via Stats().
//
// # Concurrency
//
// All methods are safe for concurrent use. Work items are processed at most
// once; ordering across workers is not guaranteed.
package worker
