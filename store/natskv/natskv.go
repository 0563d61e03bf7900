// Package natskv persists automation rules in a NATS JetStream KV bucket,
// one key per rule ID. Writes go through the natsclient CAS helper so
// concurrent editors cannot silently clobber each other's revisions.
package natskv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/natsclient"
	"github.com/c360/ruleflow/store"
)

const bucketName = "ruleflow_rules"

// Store keeps rules in a JetStream KV bucket. The raw bucket handle is for
// Keys; everything else goes through the KVStore wrapper.
type Store struct {
	bucket jetstream.KeyValue
	kv     *natsclient.KVStore
}

// New creates or opens the rule bucket on the given client.
func New(client *natsclient.Client) (*Store, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrNoConnection, "natskv", "New",
			"provide a connected NATS client")
	}

	ctx := context.Background()
	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: "Automation rule documents",
		History:     5,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natskv", "New", "create KV bucket")
	}

	return &Store{
		bucket: bucket,
		kv:     client.NewKVStore(bucket),
	}, nil
}

// List returns every rule in the bucket, sorted by ID. KV keys carry no
// insertion order, so the ID sort is what keeps dispatch deterministic.
func (s *Store) List(ctx context.Context) ([]automation.Rule, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if natsclient.IsKVNoKeysError(err) {
			return []automation.Rule{}, nil
		}
		return nil, errors.WrapTransient(err, "natskv", "List", "list KV keys")
	}
	sort.Strings(keys)

	rules := make([]automation.Rule, 0, len(keys))
	for _, key := range keys {
		rule, err := s.Get(ctx, key)
		if err != nil {
			return nil, errors.WrapTransient(err, "natskv", "List",
				fmt.Sprintf("get rule %s", key))
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Get retrieves one rule by ID.
func (s *Store) Get(ctx context.Context, id string) (automation.Rule, error) {
	if id == "" {
		return automation.Rule{}, errors.WrapInvalid(errors.ErrInvalidData, "natskv", "Get",
			"rule ID cannot be empty")
	}

	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return automation.Rule{}, errors.WrapInvalid(errors.ErrRuleNotFound, "natskv", "Get",
				fmt.Sprintf("no rule with id %q", id))
		}
		return automation.Rule{}, errors.WrapTransient(err, "natskv", "Get", "get from KV")
	}

	var rule automation.Rule
	if err := json.Unmarshal(entry.Value, &rule); err != nil {
		return automation.Rule{}, errors.WrapFatal(err, "natskv", "Get", "unmarshal rule")
	}
	return rule, nil
}

// Put validates and upserts a rule. The write runs through UpdateWithRetry,
// so a revision race with another writer re-reads and retries instead of
// failing or losing the other write.
func (s *Store) Put(ctx context.Context, rule *automation.Rule) error {
	if err := store.Normalize(rule); err != nil {
		return err
	}

	data, err := json.Marshal(rule)
	if err != nil {
		return errors.WrapFatal(err, "natskv", "Put", "marshal rule")
	}

	err = s.kv.UpdateWithRetry(ctx, rule.ID, func([]byte) ([]byte, error) {
		return data, nil
	})
	if err != nil {
		return errors.WrapTransient(err, "natskv", "Put", "write to KV")
	}
	return nil
}

// Delete removes one rule by ID. Deleting a rule that does not exist
// reports errors.ErrRuleNotFound like the other backends.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, id); err != nil {
		return errors.WrapTransient(err, "natskv", "Delete", "delete from KV")
	}
	return nil
}
