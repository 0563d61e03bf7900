package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
)

// LoadDir reads every rule document under dir and returns the rules that
// validate. Files are visited in name order, so dispatch order across files
// follows file naming. A file that cannot be parsed, or a rule that fails
// validation, is skipped with a warning so one bad document never takes
// down the whole rule set.
//
// Recognized extensions are .json, .yaml, and .yml; anything else in the
// directory is ignored.
func LoadDir(dir string, logger *slog.Logger) ([]automation.Rule, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "store", "LoadDir", "read rules directory")
	}

	var rules []automation.Rule
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		path := filepath.Join(dir, entry.Name())
		loaded, err := LoadFile(path)
		if err != nil {
			logger.Warn("Skipping unparseable rules file", "path", path, "error", err)
			continue
		}
		logger.Debug("Loaded rule documents", "path", path, "count", len(loaded))

		for i := range loaded {
			rule := loaded[i]
			if err := Normalize(&rule); err != nil {
				logger.Warn("Skipping invalid rule",
					"path", path,
					"rule_name", rule.Name,
					"error", err)
				continue
			}
			rules = append(rules, rule)
		}
	}

	if len(rules) == 0 {
		logger.Warn("No rules loaded - no automations will run until rules are added", "dir", dir)
	}
	return rules, nil
}

// LoadFile parses a single rule document. A file may hold either an array
// of rules or one rule object; the array form is tried first.
func LoadFile(path string) ([]automation.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "store", "LoadFile", fmt.Sprintf("read %s", path))
	}

	unmarshal := json.Unmarshal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	}

	var rules []automation.Rule
	if err := unmarshal(data, &rules); err != nil {
		var single automation.Rule
		if err2 := unmarshal(data, &single); err2 != nil {
			return nil, errors.WrapInvalid(err2, "store", "LoadFile",
				fmt.Sprintf("parse %s (also tried as rule array: %v)", path, err))
		}
		rules = []automation.Rule{single}
	}
	return rules, nil
}

// NewFromDir loads the rules under dir into a fresh Memory store.
func NewFromDir(dir string, logger *slog.Logger) (*Memory, error) {
	rules, err := LoadDir(dir, logger)
	if err != nil {
		return nil, err
	}
	return NewMemory(rules...)
}
