package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c360/ruleflow/errors"
)

// Load builds the configuration from three layers: DefaultConfig, the
// JSON document at path, and RULEFLOW_* environment overrides, applied
// in that order. An empty path skips the file layer. The result is
// validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile unmarshals the document at path over cfg. Fields the
// document does not mention keep their current values.
func loadFile(cfg *Config, path string) error {
	data, err := safeReadFile(path)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Load", fmt.Sprintf("read %s", path))
	}

	if err := validateJSONDepth(data); err != nil {
		return errors.WrapInvalid(err, "Config", "Load", fmt.Sprintf("check structure of %s", path))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WrapInvalid(err, "Config", "Load", fmt.Sprintf("parse %s", path))
	}

	parseDurations(raw)

	normalized, err := json.Marshal(raw)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Load", "normalize config document")
	}

	if err := json.Unmarshal(normalized, cfg); err != nil {
		return errors.WrapInvalid(err, "Config", "Load", fmt.Sprintf("apply %s", path))
	}

	return nil
}

// durationFields lists the section/field pairs that accept Go duration
// strings ("30s", "1m30s") in the JSON document.
var durationFields = [][2]string{
	{"service", "shutdown_timeout"},
	{"nats", "reconnect_wait"},
	{"nats", "connect_timeout"},
	{"store", "cache_ttl"},
	{"dispatch", "webhook_timeout"},
}

// parseDurations rewrites duration strings as nanosecond integers so
// the document unmarshals into time.Duration fields. Values that are
// already numeric, or that fail to parse, are left for Unmarshal and
// Validate to report.
func parseDurations(raw map[string]any) {
	for _, field := range durationFields {
		section, ok := raw[field[0]].(map[string]any)
		if !ok {
			continue
		}
		s, ok := section[field[1]].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(s); err == nil {
			section[field[1]] = d.Nanoseconds()
		}
	}
}

// applyEnvOverrides layers RULEFLOW_* environment variables over cfg.
// Only deployment-facing fields are exposed this way; everything else
// is file-only.
func applyEnvOverrides(cfg *Config) error {
	stringOverrides := []struct {
		key    string
		target *string
	}{
		{"RULEFLOW_LOG_LEVEL", &cfg.Logging.Level},
		{"RULEFLOW_LOG_FORMAT", &cfg.Logging.Format},
		{"RULEFLOW_NATS_URL", &cfg.NATS.URL},
		{"RULEFLOW_NATS_USERNAME", &cfg.NATS.Username},
		{"RULEFLOW_NATS_PASSWORD", &cfg.NATS.Password},
		{"RULEFLOW_NATS_TOKEN", &cfg.NATS.Token},
		{"RULEFLOW_INGEST_SUBJECT", &cfg.Ingest.Subject},
		{"RULEFLOW_STORE_BACKEND", &cfg.Store.Backend},
		{"RULEFLOW_STORE_DIR", &cfg.Store.Dir},
		{"RULEFLOW_STORE_PATH", &cfg.Store.Path},
		{"RULEFLOW_FEED_ADDR", &cfg.Feed.Addr},
	}

	for _, o := range stringOverrides {
		val := os.Getenv(o.key)
		if val == "" {
			continue
		}
		if err := validateEnvVar(o.key, val); err != nil {
			return errors.WrapInvalid(err, "Config", "Load", "check environment override")
		}
		*o.target = val
	}

	if val := os.Getenv("RULEFLOW_METRICS_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Load", "parse RULEFLOW_METRICS_PORT")
		}
		cfg.Metrics.Port = port
	}

	return nil
}
