// Package engine matches events against automation rules and dispatches
// the actions of every rule that matches.
//
// # Overview
//
// An automation rule pairs a trigger ("when a job's status changes to
// sold") with an action ("create a task to order materials"). The engine
// is the read side of that pairing: given one event and the current rule
// set, it selects the rules whose trigger the event satisfies and hands
// each one to the dispatcher. The engine holds no rules and no mutable
// state of its own; the rule set is an argument to every pass, so the
// caller decides where rules live and how fresh they are.
//
// # Matching
//
// Match keeps a rule when all three hold:
//   - the rule is enabled,
//   - the rule's trigger kind equals the event's kind,
//   - TriggerSatisfied accepts the trigger's kind-specific conditions.
//
// Kind-specific conditions are deliberately thin. Job-shaped triggers
// compare the job value against inclusive min/max bounds, where a zero
// bound means unbounded. Status-change triggers compare the event's new
// status against the trigger's to_status; the from_status field is
// accepted in rule configuration but not compared, so a rule with
// to_status "sold" fires on any transition into "sold". Thresholds like
// days_overdue and stock_threshold belong to the event source, which
// evaluates them before raising the event; the trigger carries them as
// configuration for that source, and matching treats them as already
// satisfied.
//
// Matching preserves rule-set order, and dispatch follows that order
// within a pass, so rule authors can reason about which of two matched
// rules acts first.
//
// # Event processing
//
// ProcessEvent never returns an error and never panics. Every matched
// rule yields exactly one outcome through the dispatcher's reporter:
// success, skipped (with the unmet precondition), or failed (with the
// handler error). A failing or panicking handler is contained by the
// dispatcher; the pass continues with the next rule. Rules with a
// delay execute later through the dispatcher's scheduler, and the pass
// does not wait for them.
//
// # Generic conditions
//
// Rules may carry generic field conditions (equals, greater_than,
// less_than, contains over event fields). EvaluateConditions implements
// them, but Match does not consult it: generic conditions are an
// extension point for callers that want stricter matching, evaluated by
// the caller between Match and Dispatch. See EvaluateConditions for the
// field names and comparison rules.
package engine
