package automation

import (
	"fmt"

	"github.com/c360/ruleflow/errors"
)

// TriggerKind identifies the event kind a rule listens for.
type TriggerKind string

const (
	// TriggerNewCustomer fires when a customer record is created.
	TriggerNewCustomer TriggerKind = "new_customer"

	// TriggerJobCreated fires when a job or estimate is created.
	TriggerJobCreated TriggerKind = "job_created"

	// TriggerJobStatusUpdated fires when a job transitions to a new status.
	TriggerJobStatusUpdated TriggerKind = "job_status_updated"

	// TriggerTaskCompleted fires when a task is marked complete.
	TriggerTaskCompleted TriggerKind = "task_completed"

	// TriggerInvoiceOverdue fires when an invoice passes its due date.
	// The overdue threshold is evaluated by the event source, not the engine.
	TriggerInvoiceOverdue TriggerKind = "invoice_overdue"

	// TriggerScheduledTime fires at a configured time of day.
	TriggerScheduledTime TriggerKind = "scheduled_time"

	// TriggerInventoryLow fires when an item's stock drops below its
	// threshold. The threshold is evaluated by the event source.
	TriggerInventoryLow TriggerKind = "inventory_low"
)

// TriggerKinds lists every valid trigger kind.
var TriggerKinds = []TriggerKind{
	TriggerNewCustomer,
	TriggerJobCreated,
	TriggerJobStatusUpdated,
	TriggerTaskCompleted,
	TriggerInvoiceOverdue,
	TriggerScheduledTime,
	TriggerInventoryLow,
}

// Valid reports whether k is a known trigger kind.
func (k TriggerKind) Valid() bool {
	for _, known := range TriggerKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ActionKind identifies the effect a rule produces when matched.
type ActionKind string

const (
	// ActionCreateTask creates a task with a title and description.
	ActionCreateTask ActionKind = "create_task"

	// ActionSendEmail sends an email to a configured recipient.
	ActionSendEmail ActionKind = "send_email"

	// ActionAddToSchedule creates a schedule entry.
	ActionAddToSchedule ActionKind = "add_to_schedule"

	// ActionUpdateInventory deducts inventory for the triggering job.
	ActionUpdateInventory ActionKind = "update_inventory"

	// ActionWebhook POSTs the rule name, trigger kind, and event data
	// to a configured URL.
	ActionWebhook ActionKind = "webhook"

	// ActionSendSMS is modeled but has no wired handler in this version.
	// Dispatching it reports a skipped outcome.
	ActionSendSMS ActionKind = "send_sms"

	// ActionUpdateJobStatus is modeled but has no wired handler in this
	// version. Dispatching it reports a skipped outcome.
	ActionUpdateJobStatus ActionKind = "update_job_status"

	// ActionAssignTeam is modeled but has no wired handler in this
	// version. Dispatching it reports a skipped outcome.
	ActionAssignTeam ActionKind = "assign_team"

	// ActionCreateInvoice is modeled but has no wired handler in this
	// version. Dispatching it reports a skipped outcome.
	ActionCreateInvoice ActionKind = "create_invoice"
)

// ActionKinds lists every valid action kind, wired or not.
var ActionKinds = []ActionKind{
	ActionCreateTask,
	ActionSendEmail,
	ActionAddToSchedule,
	ActionUpdateInventory,
	ActionWebhook,
	ActionSendSMS,
	ActionUpdateJobStatus,
	ActionAssignTeam,
	ActionCreateInvoice,
}

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	for _, known := range ActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Trigger is the tagged trigger variant of a rule. Kind selects the
// variant; the remaining fields are kind-specific configuration and are
// zero-valued for kinds that do not use them.
type Trigger struct {
	Kind TriggerKind `json:"kind" yaml:"kind"`

	// ToStatus is the status a job must transition to for
	// job_status_updated triggers.
	ToStatus string `json:"to_status,omitempty" yaml:"to_status,omitempty"`

	// FromStatus is accepted in configuration but never compared against
	// the job's previous status. Matching a transition by its origin is a
	// known gap; the field is preserved so existing rule documents keep
	// loading. See engine.TriggerSatisfied.
	FromStatus string `json:"from_status,omitempty" yaml:"from_status,omitempty"`

	// DaysOverdue configures invoice_overdue triggers. Informational to
	// the engine: the event source applies the threshold before raising
	// the event.
	DaysOverdue int `json:"days_overdue,omitempty" yaml:"days_overdue,omitempty"`

	// ItemName and StockThreshold configure inventory_low triggers.
	// Informational to the engine, as with DaysOverdue.
	ItemName       string `json:"item_name,omitempty" yaml:"item_name,omitempty"`
	StockThreshold int    `json:"stock_threshold,omitempty" yaml:"stock_threshold,omitempty"`

	// JobValueMin and JobValueMax bound the job value for job_created and
	// job_status_updated triggers. Bounds are inclusive. A zero value
	// means "not configured" and never filters.
	JobValueMin float64 `json:"job_value_min,omitempty" yaml:"job_value_min,omitempty"`
	JobValueMax float64 `json:"job_value_max,omitempty" yaml:"job_value_max,omitempty"`
}

// Action is the tagged action variant of a rule. Kind selects the
// variant; the remaining fields are kind-specific configuration. String
// fields marked as templates may carry placeholder tokens resolved at
// dispatch time (see the template package).
type Action struct {
	Kind ActionKind `json:"kind" yaml:"kind"`

	// DelayMinutes defers execution by the given number of minutes.
	// Zero or absent means immediate. Applies to every action kind.
	DelayMinutes int `json:"delay_minutes,omitempty" yaml:"delay_minutes,omitempty"`

	// Recipient, Subject, and Body configure send_email (Recipient and
	// Body also apply to send_sms). All three are templates.
	Recipient string `json:"recipient,omitempty" yaml:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Body      string `json:"body,omitempty" yaml:"body,omitempty"`

	// TaskTitle and TaskDescription configure create_task. Both are
	// templates.
	TaskTitle       string `json:"task_title,omitempty" yaml:"task_title,omitempty"`
	TaskDescription string `json:"task_description,omitempty" yaml:"task_description,omitempty"`

	// EntryName, StartInDays, DurationDays, and Color configure
	// add_to_schedule. EntryName is a template. The entry starts
	// StartInDays days after dispatch and spans DurationDays days.
	EntryName    string `json:"entry_name,omitempty" yaml:"entry_name,omitempty"`
	StartInDays  int    `json:"start_in_days,omitempty" yaml:"start_in_days,omitempty"`
	DurationDays int    `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
	Color        string `json:"color,omitempty" yaml:"color,omitempty"`

	// URL configures webhook.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// TargetStatus configures update_job_status (unwired).
	TargetStatus string `json:"target_status,omitempty" yaml:"target_status,omitempty"`

	// Team configures assign_team (unwired).
	Team string `json:"team,omitempty" yaml:"team,omitempty"`
}

// Operator is a comparison operator in a generic rule condition.
type Operator string

const (
	// OpEquals compares for equality, numerically when both sides parse
	// as numbers.
	OpEquals Operator = "equals"

	// OpGreaterThan compares numerically, falling back to string order.
	OpGreaterThan Operator = "greater_than"

	// OpLessThan compares numerically, falling back to string order.
	OpLessThan Operator = "less_than"

	// OpContains checks substring containment on the string forms.
	OpContains Operator = "contains"
)

// Operators lists every valid condition operator.
var Operators = []Operator{OpEquals, OpGreaterThan, OpLessThan, OpContains}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Condition is a generic field/operator/value predicate. Conditions are
// part of the rule model and evaluable through engine.EvaluateConditions,
// but the matcher does not consult them: only the trigger-specific checks
// in engine.TriggerSatisfied constrain matching. They are an extension
// point for callers that want finer-grained filtering.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// Rule is a stored automation: trigger + conditions + action, authored
// by a user. The engine reads rules and never mutates them.
type Rule struct {
	// ID uniquely identifies the rule. Empty for not-yet-created rules;
	// stores and loaders assign a UUID on first save.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Name and Description are display metadata with no effect on
	// execution. Name appears in outcomes and logs.
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Trigger    Trigger     `json:"trigger" yaml:"trigger"`
	Action     Action      `json:"action" yaml:"action"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Enabled gates matching. Disabled rules are never matched.
	Enabled bool `json:"is_enabled" yaml:"is_enabled"`
}

// Validate checks kind validity and per-kind configuration shape.
// Stores and loaders call it before accepting a rule; the engine trusts
// rules it is handed and re-checks only dispatch-time preconditions on
// resolved values.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate", "name is required")
	}

	if !r.Trigger.Kind.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			fmt.Sprintf("unknown trigger kind %q", r.Trigger.Kind))
	}

	if err := r.validateTrigger(); err != nil {
		return err
	}

	if !r.Action.Kind.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			fmt.Sprintf("unknown action kind %q", r.Action.Kind))
	}

	if r.Action.DelayMinutes < 0 {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			fmt.Sprintf("delay_minutes must be non-negative, got %d", r.Action.DelayMinutes))
	}

	if err := r.validateAction(); err != nil {
		return err
	}

	for i, c := range r.Conditions {
		if c.Field == "" {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				fmt.Sprintf("condition %d: field is required", i))
		}
		if !c.Operator.Valid() {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				fmt.Sprintf("condition %d: unknown operator %q", i, c.Operator))
		}
	}

	return nil
}

func (r *Rule) validateTrigger() error {
	t := r.Trigger

	if t.DaysOverdue < 0 {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			fmt.Sprintf("days_overdue must be non-negative, got %d", t.DaysOverdue))
	}
	if t.StockThreshold < 0 {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			fmt.Sprintf("stock_threshold must be non-negative, got %d", t.StockThreshold))
	}
	if t.JobValueMin < 0 || t.JobValueMax < 0 {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			"job value bounds must be non-negative")
	}
	if t.JobValueMin > 0 && t.JobValueMax > 0 && t.JobValueMin > t.JobValueMax {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			fmt.Sprintf("job_value_min %.2f exceeds job_value_max %.2f", t.JobValueMin, t.JobValueMax))
	}

	if t.Kind == TriggerJobStatusUpdated && t.ToStatus == "" {
		return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
			"to_status is required for job_status_updated triggers")
	}

	return nil
}

func (r *Rule) validateAction() error {
	a := r.Action

	switch a.Kind {
	case ActionCreateTask:
		if a.TaskTitle == "" {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				"task_title is required for create_task actions")
		}
	case ActionSendEmail:
		if a.Recipient == "" {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				"recipient is required for send_email actions")
		}
		if a.Subject == "" {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				"subject is required for send_email actions")
		}
	case ActionAddToSchedule:
		if a.EntryName == "" {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				"entry_name is required for add_to_schedule actions")
		}
		if a.StartInDays < 0 || a.DurationDays < 0 {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				"schedule offsets must be non-negative")
		}
	case ActionWebhook:
		if a.URL == "" {
			return errors.WrapInvalid(errors.ErrInvalidRule, "Rule", "Validate",
				"url is required for webhook actions")
		}
	}

	return nil
}
