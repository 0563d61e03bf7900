package report

import (
	"sync"

	"github.com/c360/ruleflow/automation"
)

// Recording collects outcomes for tests of the dispatch and engine
// paths. Safe for concurrent use; delayed actions report from the
// scheduler goroutine.
type Recording struct {
	mu       sync.Mutex
	outcomes []automation.Outcome
}

// Report implements Reporter.
func (r *Recording) Report(outcome automation.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// Outcomes returns a copy of everything reported so far, in order.
func (r *Recording) Outcomes() []automation.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]automation.Outcome(nil), r.outcomes...)
}

// ByStatus returns the reported outcomes with the given status.
func (r *Recording) ByStatus(status automation.OutcomeStatus) []automation.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []automation.Outcome
	for _, o := range r.outcomes {
		if o.Status == status {
			matched = append(matched, o)
		}
	}
	return matched
}

// Count returns how many outcomes have been reported.
func (r *Recording) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

// Reset discards everything reported so far.
func (r *Recording) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = nil
}
