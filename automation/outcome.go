package automation

import (
	"fmt"
	"time"
)

// OutcomeStatus classifies what happened to one dispatched rule.
type OutcomeStatus string

const (
	// OutcomeSuccess means the action handler ran and returned no error.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeSkipped means no handler ran: a dispatch precondition was
	// unmet or the action kind has no wired handler. Not a failure.
	OutcomeSkipped OutcomeStatus = "skipped"

	// OutcomeFailed means the handler ran and returned an error or
	// panicked. The failure is contained; other rules are unaffected.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome records the result of dispatching one matched rule against one
// event. Every matched rule produces exactly one outcome.
type Outcome struct {
	Status      OutcomeStatus `json:"status"`
	RuleID      string        `json:"rule_id,omitempty"`
	RuleName    string        `json:"rule_name"`
	TriggerKind TriggerKind   `json:"trigger_kind"`
	ActionKind  ActionKind    `json:"action_kind"`

	// Reason explains skipped and failed outcomes: the unmet
	// precondition, the unimplemented action kind, or the handler error.
	Reason string `json:"reason,omitempty"`

	EventID string `json:"event_id"`

	// Delayed is true when the action executed from the delay scheduler
	// rather than within its event's dispatch pass.
	Delayed bool `json:"delayed,omitempty"`

	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// Subject returns the NATS subject outcomes of this status publish to,
// e.g. "ruleflow.outcomes.failed". Subscribers filter by status with
// "ruleflow.outcomes.>" or a concrete suffix.
func (o Outcome) Subject() string {
	return fmt.Sprintf("ruleflow.outcomes.%s", o.Status)
}
