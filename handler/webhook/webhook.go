// Package webhook delivers rule-triggered webhook requests as HTTP
// POSTs. Delivery is single-attempt: the dispatcher reports a failed
// outcome on error rather than retrying, so a slow or broken endpoint
// cannot stall the rest of an event's rule pass.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/handler"
)

// DefaultTimeout bounds a delivery when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Config controls webhook delivery.
type Config struct {
	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration `json:"timeout"`

	// Headers are set on every delivery in addition to Content-Type,
	// typically a shared-secret header for the receiving service.
	Headers map[string]string `json:"headers"`
}

// Client implements handler.WebhookHandler with one HTTP POST per
// delivery. The request body is a JSON object naming the automation,
// its trigger kind, and the full event document.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     *slog.Logger
}

// New creates a webhook client.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    cfg.Headers,
		logger:     logger.With("component", "webhook"),
	}
}

// body is the JSON document POSTed to the endpoint.
type body struct {
	Automation string                 `json:"automation"`
	Trigger    automation.TriggerKind `json:"trigger"`
	Data       automation.Event       `json:"data"`
}

// Deliver implements handler.WebhookHandler.
func (c *Client) Deliver(ctx context.Context, req handler.WebhookRequest) error {
	if req.URL == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "WebhookClient", "Deliver", "provide a webhook url")
	}

	payload, err := json.Marshal(body{
		Automation: req.Automation,
		Trigger:    req.Trigger,
		Data:       req.Event,
	})
	if err != nil {
		return errors.Wrap(err, "WebhookClient", "Deliver", "marshal webhook body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", req.URL, bytes.NewReader(payload))
	if err != nil {
		return errors.WrapInvalid(err, "WebhookClient", "Deliver", "check webhook url")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.WrapTransient(err, "WebhookClient", "Deliver", fmt.Sprintf("POST %s", req.URL))
	}
	defer resp.Body.Close()

	// Read and discard body to reuse connection
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.WrapTransient(
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
			"WebhookClient", "Deliver", fmt.Sprintf("POST %s", req.URL),
		)
	}

	c.logger.Debug("delivered webhook", "url", req.URL, "automation", req.Automation, "status", resp.StatusCode)
	return nil
}
