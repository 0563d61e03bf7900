package feed

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ruleflow/metric"
)

// feedMetrics tracks client churn and message flow. All record methods
// are nil-safe so a server without a registry pays no bookkeeping.
type feedMetrics struct {
	clientsConnected prometheus.Gauge
	connectionsTotal prometheus.Counter
	messagesSent     *prometheus.CounterVec
	droppedOutcomes  prometheus.Counter
	errorsTotal      *prometheus.CounterVec
}

func newFeedMetrics(registry *metric.MetricsRegistry) (*feedMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &feedMetrics{
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ruleflow",
			Subsystem: "feed",
			Name:      "clients_connected",
			Help:      "Websocket clients currently connected",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Subsystem: "feed",
			Name:      "connections_total",
			Help:      "Websocket connections accepted since start",
		}),
		messagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "feed",
				Name:      "messages_sent_total",
				Help:      "Messages delivered to clients, by kind",
			},
			[]string{"kind"},
		),
		droppedOutcomes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Subsystem: "feed",
			Name:      "dropped_outcomes_total",
			Help:      "Outcomes dropped because the broadcast queue was full",
		}),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "feed",
				Name:      "errors_total",
				Help:      "Feed errors, by stage",
			},
			[]string{"stage"},
		),
	}

	if err := registry.RegisterGauge("feed", "clients_connected", m.clientsConnected); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("feed", "connections_total", m.connectionsTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("feed", "messages_sent_total", m.messagesSent); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("feed", "dropped_outcomes_total", m.droppedOutcomes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("feed", "errors_total", m.errorsTotal); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *feedMetrics) recordConnect(clients int) {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.clientsConnected.Set(float64(clients))
}

func (m *feedMetrics) recordDisconnect(clients int) {
	if m == nil {
		return
	}
	m.clientsConnected.Set(float64(clients))
}

func (m *feedMetrics) setClients(clients int) {
	if m == nil {
		return
	}
	m.clientsConnected.Set(float64(clients))
}

func (m *feedMetrics) recordSent(kind string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(kind).Inc()
}

func (m *feedMetrics) recordDropped() {
	if m == nil {
		return
	}
	m.droppedOutcomes.Inc()
}

func (m *feedMetrics) recordError(stage string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(stage).Inc()
}
