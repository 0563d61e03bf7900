// Package store persists automation rules.
//
// The engine itself never touches a store. The service loads the current
// rule set through List on every event pass and hands it to the engine, so
// any backend that satisfies Store can sit behind the same pipeline: the
// in-memory map, the file loader, JetStream KV, or SQLite. Cached wraps any
// of them with a TTL on List for deployments where rules change rarely.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
)

// Store is the rule persistence contract shared by all backends.
//
// Put upserts: it validates the rule, assigns a UUID when the rule carries
// no ID yet, and overwrites any existing rule with the same ID. Get and
// Delete report a missing rule with errors.ErrRuleNotFound. List returns
// rules in a stable order so matched rules dispatch deterministically.
type Store interface {
	List(ctx context.Context) ([]automation.Rule, error)
	Get(ctx context.Context, id string) (automation.Rule, error)
	Put(ctx context.Context, rule *automation.Rule) error
	Delete(ctx context.Context, id string) error
}

// Normalize validates a rule ahead of a write and assigns a fresh UUID when
// the rule has no ID yet. Every backend calls it at the top of Put so the
// stored invariants do not depend on which backend is configured.
func Normalize(rule *automation.Rule) error {
	if rule == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "store", "Put", "provide a rule")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	return nil
}
