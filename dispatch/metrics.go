package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/metric"
)

// dispatchMetrics tracks outcomes, handler latency, and the delay
// scheduler. All record methods are nil-safe so a dispatcher without a
// registry pays no bookkeeping.
type dispatchMetrics struct {
	outcomes         *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
	delayedScheduled prometheus.Counter
	delayedCancelled prometheus.Counter
	delayedPending   prometheus.Gauge
}

func newDispatchMetrics(registry *metric.MetricsRegistry) (*dispatchMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &dispatchMetrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "dispatch",
				Name:      "outcomes_total",
				Help:      "Dispatched rule outcomes, by action kind and status",
			},
			[]string{"action_kind", "status"},
		),
		handlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ruleflow",
				Subsystem: "dispatch",
				Name:      "handler_duration_seconds",
				Help:      "Handler execution time, by action kind",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action_kind"},
		),
		delayedScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Subsystem: "dispatch",
			Name:      "delayed_scheduled_total",
			Help:      "Actions handed to the delay scheduler",
		}),
		delayedCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Subsystem: "dispatch",
			Name:      "delayed_cancelled_total",
			Help:      "Pending delayed actions dropped at shutdown",
		}),
		delayedPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ruleflow",
			Subsystem: "dispatch",
			Name:      "delayed_pending",
			Help:      "Delayed actions currently waiting to fire",
		}),
	}

	if err := registry.RegisterCounterVec("dispatch", "outcomes_total", m.outcomes); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("dispatch", "handler_duration_seconds", m.handlerDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("dispatch", "delayed_scheduled_total", m.delayedScheduled); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("dispatch", "delayed_cancelled_total", m.delayedCancelled); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("dispatch", "delayed_pending", m.delayedPending); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *dispatchMetrics) recordOutcome(kind automation.ActionKind, status automation.OutcomeStatus) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(kind), string(status)).Inc()
}

func (m *dispatchMetrics) recordHandlerDuration(kind automation.ActionKind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *dispatchMetrics) recordScheduled() {
	if m == nil {
		return
	}
	m.delayedScheduled.Inc()
}

func (m *dispatchMetrics) recordCancelled(n int) {
	if m == nil {
		return
	}
	m.delayedCancelled.Add(float64(n))
}

func (m *dispatchMetrics) setPending(n int) {
	if m == nil {
		return
	}
	m.delayedPending.Set(float64(n))
}
