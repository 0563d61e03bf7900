package handler

import (
	"context"
	"sync"

	"github.com/c360/ruleflow/automation"
)

// Recording implements every handler interface and records the calls it
// receives, for tests of the dispatch path. Configure Err or Panic
// before use to simulate failing handlers; calls are recorded either
// way, so tests can assert both "was called" and "what happened".
//
// All methods are safe for concurrent use; delayed actions invoke
// handlers from the scheduler goroutine.
type Recording struct {
	// Err, when set, is returned by every handler call.
	Err error

	// Panic, when set, is raised by every handler call after recording.
	Panic any

	mu       sync.Mutex
	tasks    []Task
	entries  []ScheduleEntry
	emails   []Email
	jobs     []automation.Job
	webhooks []WebhookRequest
}

// Registry returns a Registry with every handler wired to r.
func (r *Recording) Registry() *Registry {
	return &Registry{
		Tasks:     r,
		Schedule:  r,
		Email:     r,
		Inventory: r,
		Webhook:   r,
	}
}

// CreateTask implements TaskHandler.
func (r *Recording) CreateTask(_ context.Context, task Task) error {
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()
	return r.outcome()
}

// AddToSchedule implements ScheduleHandler.
func (r *Recording) AddToSchedule(_ context.Context, entry ScheduleEntry) error {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return r.outcome()
}

// SendEmail implements EmailHandler.
func (r *Recording) SendEmail(_ context.Context, email Email) error {
	r.mu.Lock()
	r.emails = append(r.emails, email)
	r.mu.Unlock()
	return r.outcome()
}

// DeductForJob implements InventoryHandler.
func (r *Recording) DeductForJob(_ context.Context, job automation.Job) error {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
	return r.outcome()
}

// Deliver implements WebhookHandler.
func (r *Recording) Deliver(_ context.Context, req WebhookRequest) error {
	r.mu.Lock()
	r.webhooks = append(r.webhooks, req)
	r.mu.Unlock()
	return r.outcome()
}

func (r *Recording) outcome() error {
	if r.Panic != nil {
		panic(r.Panic)
	}
	return r.Err
}

// Tasks returns the recorded CreateTask calls.
func (r *Recording) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.tasks...)
}

// ScheduleEntries returns the recorded AddToSchedule calls.
func (r *Recording) ScheduleEntries() []ScheduleEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ScheduleEntry(nil), r.entries...)
}

// Emails returns the recorded SendEmail calls.
func (r *Recording) Emails() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Email(nil), r.emails...)
}

// Deductions returns the recorded DeductForJob calls.
func (r *Recording) Deductions() []automation.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]automation.Job(nil), r.jobs...)
}

// Webhooks returns the recorded Deliver calls.
func (r *Recording) Webhooks() []WebhookRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WebhookRequest(nil), r.webhooks...)
}

// CallCount returns the total number of handler calls recorded.
func (r *Recording) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks) + len(r.entries) + len(r.emails) + len(r.jobs) + len(r.webhooks)
}
