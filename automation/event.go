package automation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/ruleflow/errors"
	"github.com/google/uuid"
)

// CustomerPayload carries the customer record of a new_customer event.
type CustomerPayload struct {
	Customer Customer `json:"customer"`
}

// JobPayload carries the job record of a job_created event.
type JobPayload struct {
	Job Job `json:"job"`
}

// JobStatusPayload carries the job record and transition of a
// job_status_updated event. NewStatus duplicates Job.Status so the
// transition survives later mutations of the job record.
type JobStatusPayload struct {
	Job            Job    `json:"job"`
	NewStatus      string `json:"new_status"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

// TaskPayload carries the task record of a task_completed event.
type TaskPayload struct {
	Task Task `json:"task"`
}

// InvoicePayload carries the invoice record of an invoice_overdue event.
type InvoicePayload struct {
	Invoice     Invoice `json:"invoice"`
	DaysOverdue int     `json:"days_overdue"`
}

// SchedulePayload carries the firing time of a scheduled_time event.
// Time triggers reference no business record.
type SchedulePayload struct {
	FiredAt time.Time `json:"fired_at"`
}

// InventoryPayload carries the item record of an inventory_low event.
type InventoryPayload struct {
	Item InventoryItem `json:"item"`
}

// Event describes one observed domain occurrence: a trigger kind plus
// exactly one kind-specific payload. Events are produced by event
// sources, consumed once by the engine, and never stored.
//
// Exactly one payload pointer is non-nil, determined by Kind. Construct
// events through the New*Event functions, which enforce this and assign
// an ID and timestamp.
type Event struct {
	Kind       TriggerKind `json:"kind"`
	ID         string      `json:"id"`
	OccurredAt time.Time   `json:"occurred_at"`

	Customer  *CustomerPayload  `json:"-"`
	Job       *JobPayload       `json:"-"`
	JobStatus *JobStatusPayload `json:"-"`
	Task      *TaskPayload      `json:"-"`
	Invoice   *InvoicePayload   `json:"-"`
	Schedule  *SchedulePayload  `json:"-"`
	Inventory *InventoryPayload `json:"-"`
}

func newEvent(kind TriggerKind) Event {
	return Event{
		Kind:       kind,
		ID:         uuid.New().String(),
		OccurredAt: time.Now(),
	}
}

// NewCustomerEvent builds a new_customer event for the given customer.
func NewCustomerEvent(c Customer) Event {
	evt := newEvent(TriggerNewCustomer)
	evt.Customer = &CustomerPayload{Customer: c}
	return evt
}

// NewJobCreatedEvent builds a job_created event for the given job.
func NewJobCreatedEvent(j Job) Event {
	evt := newEvent(TriggerJobCreated)
	evt.Job = &JobPayload{Job: j}
	return evt
}

// NewJobStatusEvent builds a job_status_updated event for a job that
// moved from one status to another. The job record's Status field is set
// to the new status.
func NewJobStatusEvent(j Job, from, to string) Event {
	j.Status = to
	evt := newEvent(TriggerJobStatusUpdated)
	evt.JobStatus = &JobStatusPayload{Job: j, NewStatus: to, PreviousStatus: from}
	return evt
}

// NewTaskCompletedEvent builds a task_completed event for the given task.
func NewTaskCompletedEvent(t Task) Event {
	evt := newEvent(TriggerTaskCompleted)
	evt.Task = &TaskPayload{Task: t}
	return evt
}

// NewInvoiceOverdueEvent builds an invoice_overdue event for an invoice
// that is the given number of days past due.
func NewInvoiceOverdueEvent(inv Invoice, daysOverdue int) Event {
	evt := newEvent(TriggerInvoiceOverdue)
	evt.Invoice = &InvoicePayload{Invoice: inv, DaysOverdue: daysOverdue}
	return evt
}

// NewScheduledTimeEvent builds a scheduled_time event that fired at the
// given time.
func NewScheduledTimeEvent(firedAt time.Time) Event {
	evt := newEvent(TriggerScheduledTime)
	evt.Schedule = &SchedulePayload{FiredAt: firedAt}
	return evt
}

// NewInventoryLowEvent builds an inventory_low event for the given item.
func NewInventoryLowEvent(item InventoryItem) Event {
	evt := newEvent(TriggerInventoryLow)
	evt.Inventory = &InventoryPayload{Item: item}
	return evt
}

// JobValue returns the job value carried by the event, or 0 when the
// event carries no job record. Trigger bounds evaluate against this
// value, so events without a job compare as zero.
func (e Event) JobValue() float64 {
	if j, ok := e.JobRecord(); ok {
		return j.Value
	}
	return 0
}

// JobRecord returns the job record carried by job-shaped events
// (job_created, job_status_updated) and false for every other kind.
func (e Event) JobRecord() (Job, bool) {
	switch {
	case e.Job != nil:
		return e.Job.Job, true
	case e.JobStatus != nil:
		return e.JobStatus.Job, true
	}
	return Job{}, false
}

// CustomerRecord returns the customer associated with the event:
// the nested customer of job-shaped payloads, the customer of
// new_customer payloads, or the invoice's customer for invoice_overdue.
// Task, schedule, and inventory events carry no customer.
func (e Event) CustomerRecord() (Customer, bool) {
	switch {
	case e.Customer != nil:
		return e.Customer.Customer, true
	case e.Job != nil:
		return e.Job.Job.Customer, true
	case e.JobStatus != nil:
		return e.JobStatus.Job.Customer, true
	case e.Invoice != nil:
		return e.Invoice.Invoice.Customer, true
	}
	return Customer{}, false
}

// NewStatus returns the new status of a job_status_updated event, or ""
// for every other kind.
func (e Event) NewStatus() string {
	if e.JobStatus != nil {
		return e.JobStatus.NewStatus
	}
	return ""
}

// payload returns the pointer matching the event's kind, or nil when the
// matching payload is unset.
func (e Event) payload() any {
	switch e.Kind {
	case TriggerNewCustomer:
		if e.Customer != nil {
			return e.Customer
		}
	case TriggerJobCreated:
		if e.Job != nil {
			return e.Job
		}
	case TriggerJobStatusUpdated:
		if e.JobStatus != nil {
			return e.JobStatus
		}
	case TriggerTaskCompleted:
		if e.Task != nil {
			return e.Task
		}
	case TriggerInvoiceOverdue:
		if e.Invoice != nil {
			return e.Invoice
		}
	case TriggerScheduledTime:
		if e.Schedule != nil {
			return e.Schedule
		}
	case TriggerInventoryLow:
		if e.Inventory != nil {
			return e.Inventory
		}
	}
	return nil
}

// Validate checks that the event has a known kind, an ID, and the
// payload shape its kind requires.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidData, "Event", "Validate",
			fmt.Sprintf("unknown trigger kind %q", e.Kind))
	}
	if e.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Event", "Validate", "event ID is required")
	}
	if e.payload() == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "Event", "Validate",
			fmt.Sprintf("missing payload for trigger kind %q", e.Kind))
	}
	return nil
}

// eventWire is the JSON wire format: envelope fields plus one payload
// object whose shape is selected by kind.
type eventWire struct {
	Kind       TriggerKind     `json:"kind"`
	ID         string          `json:"id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON implements json.Marshaler, flattening the union into an
// envelope with a single kind-selected payload object.
func (e Event) MarshalJSON() ([]byte, error) {
	wire := eventWire{
		Kind:       e.Kind,
		ID:         e.ID,
		OccurredAt: e.OccurredAt,
	}

	if p := e.payload(); p != nil {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Event", "MarshalJSON", "marshal payload")
		}
		wire.Payload = data
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler, selecting the payload shape
// from the wire kind.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.WrapInvalid(err, "Event", "UnmarshalJSON", "unmarshal wire format")
	}

	*e = Event{
		Kind:       wire.Kind,
		ID:         wire.ID,
		OccurredAt: wire.OccurredAt,
	}

	if len(wire.Payload) == 0 {
		return nil
	}

	var target any
	switch wire.Kind {
	case TriggerNewCustomer:
		e.Customer = &CustomerPayload{}
		target = e.Customer
	case TriggerJobCreated:
		e.Job = &JobPayload{}
		target = e.Job
	case TriggerJobStatusUpdated:
		e.JobStatus = &JobStatusPayload{}
		target = e.JobStatus
	case TriggerTaskCompleted:
		e.Task = &TaskPayload{}
		target = e.Task
	case TriggerInvoiceOverdue:
		e.Invoice = &InvoicePayload{}
		target = e.Invoice
	case TriggerScheduledTime:
		e.Schedule = &SchedulePayload{}
		target = e.Schedule
	case TriggerInventoryLow:
		e.Inventory = &InventoryPayload{}
		target = e.Inventory
	default:
		return errors.WrapInvalid(errors.ErrInvalidData, "Event", "UnmarshalJSON",
			fmt.Sprintf("unknown trigger kind %q", wire.Kind))
	}

	if err := json.Unmarshal(wire.Payload, target); err != nil {
		return errors.WrapInvalid(err, "Event", "UnmarshalJSON",
			fmt.Sprintf("unmarshal %s payload", wire.Kind))
	}

	return nil
}
