package natsbridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ruleflow/metric"
)

// bridgeMetrics tracks command publishes per subject.
type bridgeMetrics struct {
	commandsPublished *prometheus.CounterVec
}

// newBridgeMetrics creates and registers the bridge metrics. Returns
// nil metrics when registry is nil, which disables collection.
func newBridgeMetrics(registry *metric.MetricsRegistry) (*bridgeMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &bridgeMetrics{
		commandsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ruleflow",
				Subsystem: "natsbridge",
				Name:      "commands_published_total",
				Help:      "Total command messages published, by subject",
			},
			[]string{"subject"},
		),
	}

	if err := registry.RegisterCounterVec("natsbridge", "commands_published_total", m.commandsPublished); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *bridgeMetrics) recordPublish(subject string) {
	if m == nil {
		return
	}
	m.commandsPublished.WithLabelValues(subject).Inc()
}
