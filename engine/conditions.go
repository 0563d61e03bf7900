package engine

import "github.com/c360/ruleflow/automation"

// TriggerSatisfied reports whether a trigger's kind-specific conditions
// hold for an event of the same kind. Callers check kind equality first;
// Match does this for the full rule set.
//
// Most trigger kinds narrow nothing beyond the kind itself: thresholds
// like days_overdue and stock_threshold are applied by the event source
// before the event is raised. Job-shaped triggers additionally apply
// inclusive value bounds, and status triggers require the transition's
// new status to equal the configured to_status. FromStatus is accepted
// in configuration but never compared against the previous status; see
// the field's documentation on automation.Trigger.
//
// A zero or absent bound never filters, so a rule authored without
// bounds matches every value including zero.
func TriggerSatisfied(t automation.Trigger, evt automation.Event) bool {
	switch t.Kind {
	case automation.TriggerJobCreated:
		return jobValueInBounds(t, evt.JobValue())

	case automation.TriggerJobStatusUpdated:
		if evt.NewStatus() != t.ToStatus {
			return false
		}
		return jobValueInBounds(t, evt.JobValue())

	default:
		return true
	}
}

// jobValueInBounds applies the inclusive job value bounds. Zero bounds
// are treated as unconfigured.
func jobValueInBounds(t automation.Trigger, value float64) bool {
	if t.JobValueMin > 0 && value < t.JobValueMin {
		return false
	}
	if t.JobValueMax > 0 && value > t.JobValueMax {
		return false
	}
	return true
}
