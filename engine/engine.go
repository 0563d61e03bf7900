package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/dispatch"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/metric"
)

// Engine runs events through the rule set: match, then dispatch each
// matched rule. It holds no rules of its own; callers pass the rule
// set per event, so rule storage and caching stay outside the engine.
type Engine struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	metrics    *engineMetrics
}

// New creates an Engine around a dispatcher. A nil metricsRegistry
// disables engine metrics.
func New(dispatcher *dispatch.Dispatcher, logger *slog.Logger, metricsRegistry *metric.MetricsRegistry) (*Engine, error) {
	if dispatcher == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Engine", "New", "provide a dispatcher")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newEngineMetrics(metricsRegistry)
	if err != nil {
		return nil, err
	}

	return &Engine{
		dispatcher: dispatcher,
		logger:     logger.With("component", "engine"),
		metrics:    metrics,
	}, nil
}

// ProcessEvent runs one full pass: match the event against the rule
// set, dispatch each matched rule in rule-set order. It never returns
// an error and never panics; rule failures surface as failed outcomes
// through the dispatcher's reporter, and anything worse is caught and
// logged here. The pass may return while delayed actions are still
// pending.
func (e *Engine) ProcessEvent(ctx context.Context, evt automation.Event, rules []automation.Rule) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event pass panicked",
				"event_id", evt.ID,
				"trigger", string(evt.Kind),
				"panic", r,
			)
		}
	}()

	start := time.Now()

	matched := Match(evt, rules)
	e.logger.Debug("matched rules",
		"event_id", evt.ID,
		"trigger", string(evt.Kind),
		"candidates", len(rules),
		"matched", len(matched),
	)

	for _, rule := range matched {
		e.dispatcher.Dispatch(ctx, rule, evt)
	}

	e.metrics.recordPass(evt.Kind, len(matched), time.Since(start))
}

// Close stops the dispatcher's delay scheduler, dropping any delayed
// actions still pending.
func (e *Engine) Close() error {
	return e.dispatcher.Close()
}
