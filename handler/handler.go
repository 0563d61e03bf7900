// Package handler defines the contracts between the dispatch engine and
// the external systems that carry out actions: task creation, schedule
// entries, email, inventory deduction, and webhook delivery.
//
// The engine calls these interfaces and nothing else; side effects,
// storage, and transport concerns belong entirely to the implementation.
// Handler failures are caught by the dispatcher, reported as failed
// outcomes, and never retried, so implementations should bound their own
// work (the webhook handler's HTTP client carries the request timeout,
// for example).
//
// A Registry bundles one handler per concern. Unset entries make the
// dispatcher report a skipped outcome for that action kind instead of
// failing, so a deployment can wire only the integrations it has.
package handler

import (
	"context"
	"time"

	"github.com/c360/ruleflow/automation"
)

// Task is the work item a create_task action produces. Assignees is
// always empty in this version; rules cannot target individuals.
type Task struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Assignees   []string `json:"assignees"`
}

// ScheduleEntry is the calendar entry an add_to_schedule action
// produces. Entries carry no links to other records.
type ScheduleEntry struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Color string    `json:"color,omitempty"`
}

// Email is the message a send_email action produces. Delivery is
// fire-and-forget from the engine's point of view.
type Email struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body,omitempty"`
}

// WebhookRequest is the delivery a webhook action produces. The JSON
// body sent to URL is {"automation", "trigger", "data"} where data is
// the raw event.
type WebhookRequest struct {
	URL        string
	Automation string
	Trigger    automation.TriggerKind
	Event      automation.Event
}

// TaskHandler creates tasks.
type TaskHandler interface {
	CreateTask(ctx context.Context, task Task) error
}

// ScheduleHandler creates schedule entries.
type ScheduleHandler interface {
	AddToSchedule(ctx context.Context, entry ScheduleEntry) error
}

// EmailHandler sends email.
type EmailHandler interface {
	SendEmail(ctx context.Context, email Email) error
}

// InventoryHandler deducts stock consumed by a job.
type InventoryHandler interface {
	DeductForJob(ctx context.Context, job automation.Job) error
}

// WebhookHandler delivers webhook payloads.
type WebhookHandler interface {
	Deliver(ctx context.Context, req WebhookRequest) error
}

// Registry bundles the wired handlers. A nil field means no handler is
// wired for that concern and dispatching the corresponding action kind
// reports a skip.
type Registry struct {
	Tasks     TaskHandler
	Schedule  ScheduleHandler
	Email     EmailHandler
	Inventory InventoryHandler
	Webhook   WebhookHandler
}
