// Package natsbridge carries dispatched actions onto NATS as command
// messages for downstream services to execute. The bridge does not
// perform the actions itself; it publishes one JSON command per call
// and treats a successful publish as a successful dispatch.
//
// Subjects follow the ruleflow.commands.* hierarchy, one subject per
// command kind, so downstream consumers can subscribe to exactly the
// commands they implement.
package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/handler"
	"github.com/c360/ruleflow/metric"
	"github.com/c360/ruleflow/natsclient"
)

// Command subjects published by the bridge.
const (
	SubjectTaskCreate      = "ruleflow.commands.task.create"
	SubjectScheduleAdd     = "ruleflow.commands.schedule.add"
	SubjectEmailSend       = "ruleflow.commands.email.send"
	SubjectInventoryDeduct = "ruleflow.commands.inventory.deduct"
)

// command is the wire envelope for every bridge publish.
type command struct {
	Kind     string    `json:"kind"`
	IssuedAt time.Time `json:"issued_at"`
	Payload  any       `json:"payload"`
}

func newCommand(kind string, payload any) command {
	return command{
		Kind:     kind,
		IssuedAt: time.Now().UTC(),
		Payload:  payload,
	}
}

// Bridge implements the task, schedule, email, and inventory handler
// contracts by publishing command messages to NATS.
type Bridge struct {
	client  *natsclient.Client
	logger  *slog.Logger
	metrics *bridgeMetrics
}

// New creates a Bridge on an established NATS client. A nil registry
// disables metrics.
func New(client *natsclient.Client, logger *slog.Logger, registry *metric.MetricsRegistry) (*Bridge, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrNoConnection, "Bridge", "New", "provide a connected NATS client")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newBridgeMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Bridge{
		client:  client,
		logger:  logger.With("component", "natsbridge"),
		metrics: metrics,
	}, nil
}

// Wire wires the bridge into a handler registry alongside the given
// webhook handler. Any of the registry slots can be overridden by the
// caller afterwards.
func (b *Bridge) Wire(webhook handler.WebhookHandler) *handler.Registry {
	return &handler.Registry{
		Tasks:     b,
		Schedule:  b,
		Email:     b,
		Inventory: b,
		Webhook:   webhook,
	}
}

// CreateTask implements handler.TaskHandler.
func (b *Bridge) CreateTask(ctx context.Context, task handler.Task) error {
	return b.publish(ctx, "CreateTask", SubjectTaskCreate, "task.create", task)
}

// AddToSchedule implements handler.ScheduleHandler.
func (b *Bridge) AddToSchedule(ctx context.Context, entry handler.ScheduleEntry) error {
	return b.publish(ctx, "AddToSchedule", SubjectScheduleAdd, "schedule.add", entry)
}

// SendEmail implements handler.EmailHandler.
func (b *Bridge) SendEmail(ctx context.Context, email handler.Email) error {
	return b.publish(ctx, "SendEmail", SubjectEmailSend, "email.send", email)
}

// DeductForJob implements handler.InventoryHandler.
func (b *Bridge) DeductForJob(ctx context.Context, job automation.Job) error {
	return b.publish(ctx, "DeductForJob", SubjectInventoryDeduct, "inventory.deduct", job)
}

func (b *Bridge) publish(ctx context.Context, method, subject, kind string, payload any) error {
	data, err := json.Marshal(newCommand(kind, payload))
	if err != nil {
		return errors.Wrap(err, "Bridge", method, "marshal command")
	}

	if err := b.client.Publish(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "Bridge", method, fmt.Sprintf("publish to %s", subject))
	}

	b.metrics.recordPublish(subject)
	b.logger.Debug("published command", "subject", subject, "kind", kind)
	return nil
}
