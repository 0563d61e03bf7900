package engine

import "github.com/c360/ruleflow/automation"

// Match returns the rules that apply to the event: enabled, trigger kind
// equal to the event's kind, and TriggerSatisfied. The result preserves
// the input order, so callers control cross-rule execution order by
// ordering the rule set. Match reads the rule set and mutates nothing.
//
// Generic rule conditions are not consulted here; see EvaluateConditions.
func Match(evt automation.Event, rules []automation.Rule) []automation.Rule {
	var matched []automation.Rule
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		if r.Trigger.Kind != evt.Kind {
			continue
		}
		if !TriggerSatisfied(r.Trigger, evt) {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}
