package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/metric"
)

// engineMetrics tracks event passes. Record methods are nil-safe so an
// engine without a registry pays no bookkeeping.
type engineMetrics struct {
	eventsProcessed *prometheus.CounterVec
	rulesMatched    *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
}

func newEngineMetrics(registry *metric.MetricsRegistry) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &engineMetrics{
		eventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "engine",
				Name:      "events_processed_total",
				Help:      "Events run through a full match and dispatch pass, by trigger kind",
			},
			[]string{"trigger_kind"},
		),
		rulesMatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "engine",
				Name:      "rules_matched_total",
				Help:      "Rules matched across all passes, by trigger kind",
			},
			[]string{"trigger_kind"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ruleflow",
				Subsystem: "engine",
				Name:      "pass_duration_seconds",
				Help:      "Time for one match and dispatch pass, by trigger kind",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"trigger_kind"},
		),
	}

	if err := registry.RegisterCounterVec("engine", "events_processed_total", m.eventsProcessed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "rules_matched_total", m.rulesMatched); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("engine", "pass_duration_seconds", m.passDuration); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *engineMetrics) recordPass(kind automation.TriggerKind, matched int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(string(kind)).Inc()
	m.rulesMatched.WithLabelValues(string(kind)).Add(float64(matched))
	m.passDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
