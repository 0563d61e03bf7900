package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/natsclient"
)

// publishTimeout bounds each outcome publish so a wedged connection
// cannot stall the dispatch pass that reported it.
const publishTimeout = 5 * time.Second

// NATSPublisher publishes each outcome as JSON on its status subject
// (ruleflow.outcomes.success, .skipped, .failed). Publish problems are
// logged and swallowed; outcome reporting never feeds errors back into
// rule processing.
type NATSPublisher struct {
	client *natsclient.Client
	logger *slog.Logger
}

// NewNATSPublisher creates a publisher on an established NATS client.
func NewNATSPublisher(client *natsclient.Client, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{
		client: client,
		logger: logger.With("component", "report"),
	}
}

// Report implements Reporter.
func (p *NATSPublisher) Report(outcome automation.Outcome) {
	data, err := json.Marshal(outcome)
	if err != nil {
		p.logger.Warn("marshal outcome failed", "rule", outcome.RuleName, "error", err)
		return
	}

	subject := outcome.Subject()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, subject, data); err != nil {
		p.logger.Warn("publish outcome failed", "subject", subject, "rule", outcome.RuleName, "error", err)
	}
}
