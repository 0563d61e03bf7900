// Package sqlite persists automation rules in a SQLite database.
//
// Each rule row carries a few explicit columns for ad-hoc queries plus the
// full JSON document, which is what Get and List actually decode. A
// position column preserves insertion order so dispatch order matches the
// memory store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	trigger_kind TEXT NOT NULL,
	action_kind  TEXT NOT NULL,
	is_enabled   INTEGER NOT NULL,
	position     INTEGER NOT NULL,
	document     TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position);
`

// Store keeps rules in a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
// Pass ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "sqlite", "Open",
			"database path cannot be empty")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapTransient(err, "sqlite", "Open", "open database")
	}

	// One connection keeps writers serialized and makes :memory: behave:
	// each pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapTransient(err, "sqlite", "Open", "apply schema")
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "sqlite", "Close", "close database")
	}
	return nil
}

// List returns all rules in insertion order.
func (s *Store) List(ctx context.Context) ([]automation.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM rules ORDER BY position`)
	if err != nil {
		return nil, errors.WrapTransient(err, "sqlite", "List", "query rules")
	}
	defer rows.Close()

	var rules []automation.Rule
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.WrapTransient(err, "sqlite", "List", "scan rule row")
		}
		var rule automation.Rule
		if err := json.Unmarshal([]byte(doc), &rule); err != nil {
			return nil, errors.WrapFatal(err, "sqlite", "List", "unmarshal rule document")
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapTransient(err, "sqlite", "List", "iterate rule rows")
	}
	return rules, nil
}

// Get retrieves one rule by ID.
func (s *Store) Get(ctx context.Context, id string) (automation.Rule, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM rules WHERE id=?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return automation.Rule{}, errors.WrapInvalid(errors.ErrRuleNotFound, "sqlite", "Get",
			fmt.Sprintf("no rule with id %q", id))
	}
	if err != nil {
		return automation.Rule{}, errors.WrapTransient(err, "sqlite", "Get", "query rule")
	}

	var rule automation.Rule
	if err := json.Unmarshal([]byte(doc), &rule); err != nil {
		return automation.Rule{}, errors.WrapFatal(err, "sqlite", "Get", "unmarshal rule document")
	}
	return rule, nil
}

// Put validates and upserts a rule in one transaction. A new rule takes
// the next position; re-saving an existing rule keeps its position and
// created_at.
func (s *Store) Put(ctx context.Context, rule *automation.Rule) error {
	if err := store.Normalize(rule); err != nil {
		return err
	}

	doc, err := json.Marshal(rule)
	if err != nil {
		return errors.WrapFatal(err, "sqlite", "Put", "marshal rule")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapTransient(err, "sqlite", "Put", "begin transaction")
	}
	defer tx.Rollback()

	var position int64
	err = tx.QueryRowContext(ctx, `SELECT position FROM rules WHERE id=?`, rule.ID).Scan(&position)
	if err == sql.ErrNoRows {
		err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position),0)+1 FROM rules`).Scan(&position)
	}
	if err != nil {
		return errors.WrapTransient(err, "sqlite", "Put", "resolve rule position")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO rules(id,name,trigger_kind,action_kind,is_enabled,position,document,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			trigger_kind=excluded.trigger_kind,
			action_kind=excluded.action_kind,
			is_enabled=excluded.is_enabled,
			document=excluded.document,
			updated_at=excluded.updated_at`,
		rule.ID, rule.Name, string(rule.Trigger.Kind), string(rule.Action.Kind),
		rule.Enabled, position, string(doc), now, now)
	if err != nil {
		return errors.WrapTransient(err, "sqlite", "Put", "upsert rule")
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapTransient(err, "sqlite", "Put", "commit transaction")
	}
	return nil
}

// Delete removes one rule by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id=?`, id)
	if err != nil {
		return errors.WrapTransient(err, "sqlite", "Delete", "delete rule")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WrapTransient(err, "sqlite", "Delete", "check delete result")
	}
	if affected == 0 {
		return errors.WrapInvalid(errors.ErrRuleNotFound, "sqlite", "Delete",
			fmt.Sprintf("no rule with id %q", id))
	}
	return nil
}
