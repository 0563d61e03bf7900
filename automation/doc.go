// Package automation defines the data model for the rule engine: rules
// (trigger + conditions + action), the events rules react to, and the
// outcomes dispatching produces.
//
// # Overview
//
// A Rule says "when event X occurs, perform action Y, optionally after a
// delay." Triggers and actions are tagged variants: a Kind field selects
// the variant, and the kind determines which of the flattened config
// fields are meaningful. Events are a tagged union with exactly one
// payload per trigger kind, so consumers can switch exhaustively instead
// of probing dynamic maps.
//
// # Rules
//
//	rule := automation.Rule{
//	    Name: "High value job alert",
//	    Trigger: automation.Trigger{
//	        Kind:        automation.TriggerJobCreated,
//	        JobValueMin: 5000,
//	    },
//	    Action: automation.Action{
//	        Kind:      automation.ActionSendEmail,
//	        Recipient: "sales@example.com",
//	        Subject:   "New job [job_number]",
//	        Body:      "[customer_name] booked a job worth [job_value].",
//	    },
//	    Enabled: true,
//	}
//	if err := rule.Validate(); err != nil { ... }
//
// Rules serialize to JSON for storage and the wire, and to YAML for rule
// files. Validate checks kind validity and per-kind config shape; stores
// and loaders call it before accepting a rule.
//
// # Events
//
// Event sources construct events through the New*Event constructors,
// which assign a unique ID and timestamp:
//
//	evt := automation.NewJobCreatedEvent(automation.Job{
//	    Number:   "1042",
//	    Value:    7500,
//	    Customer: automation.Customer{Name: "Acme"},
//	})
//
// Events are ephemeral. They are consumed once by the engine and never
// stored; the JSON codec exists for transport, not persistence.
//
// # Outcomes
//
// Every dispatched rule produces exactly one Outcome: success, skipped
// (precondition unmet or action kind not implemented), or failed (handler
// error). Outcomes carry the rule identity, event ID, and a reason so
// operators can trace why an action did or did not run.
package automation
