// Package ingest feeds the engine from NATS. It subscribes to the
// event subjects, decodes each message into an automation.Event, and
// hands it to a bounded worker pool; each worker loads the current
// rule set and runs one full dispatch pass, so slow handlers back up
// the pool queue instead of the NATS subscription. Events that cannot
// be decoded, validated, or queued are dropped, counted, and logged,
// never escalated.
package ingest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/engine"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/health"
	"github.com/c360/ruleflow/metric"
	"github.com/c360/ruleflow/natsclient"
	"github.com/c360/ruleflow/pkg/worker"
	"github.com/c360/ruleflow/store"
)

// DefaultSubject is the wildcard subscription covering every event
// kind published under the event prefix.
const DefaultSubject = "ruleflow.events.>"

// Config sizes the ingest stage.
type Config struct {
	// Subject is the NATS subscription subject; DefaultSubject when empty.
	Subject string `json:"subject"`

	// Workers is the number of concurrent dispatch passes.
	Workers int `json:"workers"`

	// QueueSize bounds events waiting for a worker. Events arriving
	// while the queue is full are dropped and counted.
	QueueSize int `json:"queue_size"`
}

// DefaultConfig returns the ingest defaults: every event kind, four
// workers, a 256-event queue.
func DefaultConfig() Config {
	return Config{
		Subject:   DefaultSubject,
		Workers:   4,
		QueueSize: 256,
	}
}

// Ingestor consumes events from NATS and runs them through the
// engine. Construct with New, then Start; a stopped Ingestor cannot
// be restarted, create a new one.
type Ingestor struct {
	cfg     Config
	nats    *natsclient.Client
	rules   store.Store
	engine  *engine.Engine
	logger  *slog.Logger
	metrics *ingestMetrics
	pool    *worker.Pool[automation.Event]

	mu         sync.Mutex
	shutdown   chan struct{}
	done       chan struct{}
	subscribed bool
	startTime  time.Time
	lastEvent  time.Time
}

type options struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// Option configures an Ingestor.
type Option func(*options)

// WithLogger sets the ingest logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics registers ingest and worker pool metrics on the given
// registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// New creates an Ingestor feeding eng. The rule set is re-read from
// rules on every event so edits take effect without a restart; wrap
// the store in store.Cached when that read is hot. Zero config fields
// fall back to DefaultConfig.
func New(cfg Config, client *natsclient.Client, rules store.Store, eng *engine.Engine, opts ...Option) (*Ingestor, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrNoConnection, "Ingestor", "New", "provide a NATS client")
	}
	if rules == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Ingestor", "New", "provide a rule store")
	}
	if eng == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Ingestor", "New", "provide an engine")
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	defaults := DefaultConfig()
	if cfg.Subject == "" {
		cfg.Subject = defaults.Subject
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}

	metrics, err := newIngestMetrics(o.registry)
	if err != nil {
		return nil, err
	}

	in := &Ingestor{
		cfg:     cfg,
		nats:    client,
		rules:   rules,
		engine:  eng,
		logger:  o.logger.With("component", "ingest"),
		metrics: metrics,
	}
	in.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, in.process,
		worker.WithMetricsRegistry[automation.Event](o.registry, "ruleflow_ingest"))

	return in, nil
}

// Start starts the worker pool, subscribes to the event subject, and
// begins dispatching. The context governs the workers and the
// subscription; cancelling it halts processing without draining the
// queue.
func (in *Ingestor) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.shutdown != nil {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Ingestor", "Start", "check ingest state")
	}

	if err := in.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Ingestor", "Start", "start worker pool")
	}

	in.shutdown = make(chan struct{})
	in.done = make(chan struct{})
	in.startTime = time.Now()

	go in.run(ctx, in.shutdown, in.done)

	in.logger.Info("Ingest started",
		"subject", in.cfg.Subject,
		"workers", in.cfg.Workers,
		"queue_size", in.cfg.QueueSize)
	return nil
}

// run is the background goroutine that owns the subscription for the
// lifetime of the component.
func (in *Ingestor) run(ctx context.Context, shutdown, done chan struct{}) {
	defer close(done)

	if err := in.subscribe(ctx); err != nil {
		in.logger.Error("Failed to subscribe to events", "error", err)
		return
	}

	select {
	case <-shutdown:
		in.logger.Info("Ingest shutdown requested")
	case <-ctx.Done():
		in.logger.Info("Ingest context cancelled", "error", ctx.Err())
	}
}

func (in *Ingestor) subscribe(ctx context.Context) error {
	if !in.nats.IsHealthy() {
		return errors.WrapFatal(errors.ErrNoConnection, "Ingestor", "Start", "check NATS health")
	}

	if err := in.nats.Subscribe(ctx, in.cfg.Subject, in.handleMessage); err != nil {
		return errors.Wrap(err, "Ingestor", "Start", fmt.Sprintf("subscribe to %s", in.cfg.Subject))
	}

	in.mu.Lock()
	in.subscribed = true
	in.mu.Unlock()

	in.logger.Info("Ingest subscribed", "subject", in.cfg.Subject)
	return nil
}

// Stop shuts the ingest path down: it stops accepting events, then
// drains the queued ones, waiting up to timeout for each stage. The
// NATS client owns the subscription itself and tears it down when the
// client closes; messages delivered after Stop are counted as dropped.
func (in *Ingestor) Stop(timeout time.Duration) error {
	in.mu.Lock()
	if in.shutdown == nil {
		in.mu.Unlock()
		return nil // Already stopped
	}
	close(in.shutdown)
	in.shutdown = nil
	done := in.done
	in.done = nil
	in.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		in.logger.Warn("Ingest shutdown timeout", "timeout", timeout)
	}

	if err := in.pool.Stop(timeout); err != nil {
		in.logger.Warn("Worker pool did not drain in time", "error", err)
	}

	in.mu.Lock()
	in.subscribed = false
	in.mu.Unlock()

	in.logger.Info("Ingest stopped")
	return nil
}

// Health reports the ingest state with queue statistics attached.
func (in *Ingestor) Health() health.Status {
	in.mu.Lock()
	running := in.shutdown != nil
	subscribed := in.subscribed
	started := in.startTime
	last := in.lastEvent
	in.mu.Unlock()

	if !running {
		return health.NewUnhealthy("ingest", "Ingest not started")
	}

	stats := in.pool.Stats()
	metrics := &health.Metrics{
		Uptime:          time.Since(started),
		ErrorCount:      int(stats.Failed),
		EventsProcessed: stats.Processed,
		LastActivity:    last,
	}

	switch {
	case !subscribed:
		return health.NewDegraded("ingest", "Event subscription not established").WithMetrics(metrics)
	case !in.nats.IsHealthy():
		return health.NewDegraded("ingest", "NATS connection unhealthy").WithMetrics(metrics)
	}

	return health.NewHealthy("ingest", fmt.Sprintf("Consuming %s", in.cfg.Subject)).WithMetrics(metrics)
}

// Stats returns the worker pool counters.
func (in *Ingestor) Stats() worker.PoolStats {
	return in.pool.Stats()
}

// handleMessage decodes one NATS message and queues it for a worker.
// It never blocks the subscription: a full queue drops the event.
func (in *Ingestor) handleMessage(_ context.Context, data []byte) {
	in.metrics.recordReceived()

	in.mu.Lock()
	in.lastEvent = time.Now()
	in.mu.Unlock()

	var evt automation.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		in.metrics.recordDropped("decode")
		in.logger.Warn("Dropping undecodable event", "error", err)
		return
	}

	// Sources may omit the envelope fields; stamp them so every
	// outcome downstream carries an event identity.
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	if err := evt.Validate(); err != nil {
		in.metrics.recordDropped("invalid")
		in.logger.Warn("Dropping invalid event",
			"trigger", string(evt.Kind),
			"event_id", evt.ID,
			"error", err)
		return
	}

	if err := in.pool.Submit(evt); err != nil {
		if stderrors.Is(err, worker.ErrQueueFull) {
			in.metrics.recordDropped("queue_full")
			in.logger.Warn("Dropping event - worker queue full",
				"trigger", string(evt.Kind),
				"event_id", evt.ID,
				"queue_size", in.cfg.QueueSize)
		} else {
			in.metrics.recordDropped("not_running")
			in.logger.Debug("Dropping event - ingest not running",
				"trigger", string(evt.Kind),
				"event_id", evt.ID)
		}
		return
	}

	in.metrics.recordSubmitted(evt.Kind)
}

// process runs one full dispatch pass for a queued event. The pool
// counts returned errors as failures; ProcessEvent itself never fails.
func (in *Ingestor) process(ctx context.Context, evt automation.Event) error {
	rules, err := in.rules.List(ctx)
	if err != nil {
		in.metrics.recordDropped("load_rules")
		in.logger.Error("Failed to load rules for event",
			"event_id", evt.ID,
			"trigger", string(evt.Kind),
			"error", err)
		return errors.Wrap(err, "Ingestor", "process", "load rules")
	}

	in.engine.ProcessEvent(ctx, evt, rules)
	return nil
}
