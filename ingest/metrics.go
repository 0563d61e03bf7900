package ingest

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/metric"
)

// ingestMetrics counts events through the NATS-to-engine path. The
// worker pool registers its own queue metrics separately. All record
// methods are nil-safe so an Ingestor without a registry pays no
// bookkeeping.
type ingestMetrics struct {
	received  prometheus.Counter
	submitted *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

func newIngestMetrics(registry *metric.MetricsRegistry) (*ingestMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &ingestMetrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Subsystem: "ingest",
			Name:      "events_received_total",
			Help:      "Messages received on the event subjects",
		}),
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "ingest",
				Name:      "events_submitted_total",
				Help:      "Events queued for dispatch, by trigger kind",
			},
			[]string{"trigger"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "ingest",
				Name:      "events_dropped_total",
				Help:      "Events dropped before dispatch, by reason",
			},
			[]string{"reason"},
		),
	}

	if err := registry.RegisterCounter("ingest", "events_received_total", m.received); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("ingest", "events_submitted_total", m.submitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("ingest", "events_dropped_total", m.dropped); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *ingestMetrics) recordReceived() {
	if m == nil {
		return
	}
	m.received.Inc()
}

func (m *ingestMetrics) recordSubmitted(kind automation.TriggerKind) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(string(kind)).Inc()
}

func (m *ingestMetrics) recordDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}
