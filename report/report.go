// Package report carries action outcomes to whoever wants them. The
// dispatcher emits one Outcome per matched rule; reporters consume
// them without returning errors, so a broken sink can never interfere
// with rule processing.
//
// Slog logs outcomes, NATSPublisher publishes them on
// ruleflow.outcomes.<status>, Fanout combines reporters, and Discard
// drops them for callers that only want the side effects.
package report

import (
	"log/slog"

	"github.com/c360/ruleflow/automation"
)

// Reporter consumes the outcome of one dispatched rule. Report must
// not block for long and must never panic; it is called inline during
// an event's dispatch pass and from the delay scheduler goroutine, so
// implementations are expected to be safe for concurrent use.
type Reporter interface {
	Report(outcome automation.Outcome)
}

// Slog reports outcomes through a structured logger: success and
// skipped at info, failed at error.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a logging reporter. A nil logger uses slog.Default.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger.With("component", "report")}
}

// Report implements Reporter.
func (s *Slog) Report(outcome automation.Outcome) {
	args := []any{
		"rule", outcome.RuleName,
		"trigger", string(outcome.TriggerKind),
		"action", string(outcome.ActionKind),
		"event_id", outcome.EventID,
	}
	if outcome.RuleID != "" {
		args = append(args, "rule_id", outcome.RuleID)
	}
	if outcome.Reason != "" {
		args = append(args, "reason", outcome.Reason)
	}
	if outcome.Delayed {
		args = append(args, "delayed", true)
	}
	if outcome.Elapsed > 0 {
		args = append(args, "elapsed", outcome.Elapsed)
	}

	switch outcome.Status {
	case automation.OutcomeFailed:
		s.logger.Error("action failed", args...)
	case automation.OutcomeSkipped:
		s.logger.Info("action skipped", args...)
	default:
		s.logger.Info("action dispatched", args...)
	}
}

// Fanout reports each outcome to every reporter in order. Nil entries
// are skipped.
type Fanout []Reporter

// Report implements Reporter.
func (f Fanout) Report(outcome automation.Outcome) {
	for _, r := range f {
		if r == nil {
			continue
		}
		r.Report(outcome)
	}
}

// Discard is a Reporter that drops every outcome.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(automation.Outcome) {}
