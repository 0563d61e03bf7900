package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
)

// Memory is an in-process rule store. List returns rules in insertion
// order, and an upsert keeps the rule's original position so re-saving a
// rule does not reshuffle dispatch order. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	rules map[string]automation.Rule
	order []string
}

// NewMemory builds a store seeded with the given rules. Seed rules go
// through the same validation as Put, so a bad seed fails construction
// instead of surfacing later during an event pass.
func NewMemory(rules ...automation.Rule) (*Memory, error) {
	m := &Memory{rules: make(map[string]automation.Rule, len(rules))}
	for i := range rules {
		if err := m.Put(context.Background(), &rules[i]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// List returns a copy of the rule set in insertion order.
func (m *Memory) List(_ context.Context) ([]automation.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]automation.Rule, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rules[id])
	}
	return out, nil
}

// Get returns the rule with the given ID.
func (m *Memory) Get(_ context.Context, id string) (automation.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, ok := m.rules[id]
	if !ok {
		return automation.Rule{}, errors.WrapInvalid(errors.ErrRuleNotFound, "Memory", "Get",
			fmt.Sprintf("no rule with id %q", id))
	}
	return rule, nil
}

// Put validates and upserts a rule, assigning an ID when it has none.
func (m *Memory) Put(_ context.Context, rule *automation.Rule) error {
	if err := Normalize(rule); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[rule.ID]; !ok {
		m.order = append(m.order, rule.ID)
	}
	m.rules[rule.ID] = *rule
	return nil
}

// Delete removes the rule with the given ID.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return errors.WrapInvalid(errors.ErrRuleNotFound, "Memory", "Delete",
			fmt.Sprintf("no rule with id %q", id))
	}
	delete(m.rules, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
