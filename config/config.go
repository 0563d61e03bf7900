package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/c360/ruleflow/errors"
)

// Rule store backends selectable via Store.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendNATSKV = "natskv"
	BackendSQLite = "sqlite"
)

// Config is the full service configuration. Zero values are filled
// from DefaultConfig before a file or environment override is applied,
// so a document only needs the fields it changes.
type Config struct {
	Service  ServiceConfig  `json:"service"`
	Logging  LoggingConfig  `json:"logging"`
	NATS     NATSConfig     `json:"nats"`
	Ingest   IngestConfig   `json:"ingest"`
	Store    StoreConfig    `json:"store"`
	Dispatch DispatchConfig `json:"dispatch"`
	Metrics  MetricsConfig  `json:"metrics"`
	Feed     FeedConfig     `json:"feed"`
}

// ServiceConfig identifies the process and bounds its shutdown.
type ServiceConfig struct {
	Name            string        `json:"name"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
	// Format is json or text.
	Format string `json:"format"`
}

// NATSConfig carries the connection settings handed to the NATS client.
type NATSConfig struct {
	URL            string        `json:"url"`
	Name           string        `json:"name,omitempty"`
	MaxReconnects  int           `json:"max_reconnects"`
	ReconnectWait  time.Duration `json:"reconnect_wait"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	Username       string        `json:"username,omitempty"`
	Password       string        `json:"password,omitempty"`
	Token          string        `json:"token,omitempty"`
	TLS            TLSConfig     `json:"tls"`
}

// TLSConfig enables TLS on the NATS connection.
type TLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// IngestConfig sizes the event intake.
type IngestConfig struct {
	Subject   string `json:"subject"`
	Workers   int    `json:"workers"`
	QueueSize int    `json:"queue_size"`
}

// StoreConfig selects and configures the rule store backend.
type StoreConfig struct {
	Backend string `json:"backend"`
	// Dir holds rule documents for the file backend.
	Dir string `json:"dir,omitempty"`
	// Path is the database file for the sqlite backend.
	Path string `json:"path,omitempty"`
	// CacheTTL caches rule listings for the given duration. Zero
	// disables the cache.
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DispatchConfig tunes action execution.
type DispatchConfig struct {
	WebhookTimeout time.Duration `json:"webhook_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// FeedConfig controls the outcome feed server.
type FeedConfig struct {
	Enabled     bool   `json:"enabled"`
	Addr        string `json:"addr"`
	Path        string `json:"path"`
	HistorySize int    `json:"history_size"`
	QueueSize   int    `json:"queue_size"`
}

// DefaultConfig returns the configuration used when no file and no
// environment overrides are present. It runs against a local NATS
// server with the in-memory rule store.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:            "ruleflow",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		NATS: NATSConfig{
			URL:            "nats://localhost:4222",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			ConnectTimeout: 5 * time.Second,
		},
		Ingest: IngestConfig{
			Subject:   "ruleflow.events.>",
			Workers:   4,
			QueueSize: 256,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
		},
		Dispatch: DispatchConfig{
			WebhookTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Feed: FeedConfig{
			Enabled:     true,
			Addr:        ":8082",
			Path:        "/feed",
			HistorySize: 50,
			QueueSize:   256,
		},
	}
}

// Validate checks the configuration for missing or out-of-range
// values. Missing required fields wrap errors.ErrMissingConfig,
// unusable values wrap errors.ErrInvalidConfig. Both classify as
// invalid.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "set service.name")
	}
	if c.Service.ShutdownTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "service.shutdown_timeout must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("logging.format %q is not json or text", c.Logging.Format))
	}

	if c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "set nats.url")
	}
	if c.NATS.ReconnectWait < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "nats.reconnect_wait must not be negative")
	}
	if c.NATS.ConnectTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "nats.connect_timeout must not be negative")
	}
	if c.NATS.TLS.Enabled {
		if c.NATS.TLS.CertFile == "" || c.NATS.TLS.KeyFile == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				"set nats.tls.cert_file and nats.tls.key_file when TLS is enabled")
		}
		for _, file := range []string{c.NATS.TLS.CertFile, c.NATS.TLS.KeyFile, c.NATS.TLS.CAFile} {
			if file == "" {
				continue
			}
			if _, err := os.Stat(file); err != nil {
				return errors.WrapInvalid(err, "Config", "Validate",
					fmt.Sprintf("check TLS file %s", file))
			}
		}
	}

	if c.Ingest.Subject == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "set ingest.subject")
	}
	if c.Ingest.Workers < 0 || c.Ingest.QueueSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"ingest.workers and ingest.queue_size must not be negative")
	}

	switch c.Store.Backend {
	case BackendMemory, BackendNATSKV:
	case BackendFile:
		if c.Store.Dir == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				"set store.dir for the file backend")
		}
	case BackendSQLite:
		if c.Store.Path == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				"set store.path for the sqlite backend")
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("store.backend %q is not one of memory, file, natskv, sqlite", c.Store.Backend))
	}
	if c.Store.CacheTTL < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "store.cache_ttl must not be negative")
	}

	if c.Dispatch.WebhookTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "dispatch.webhook_timeout must not be negative")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("metrics.port %d is outside 1-65535", c.Metrics.Port))
		}
		if c.Metrics.Path == "" || c.Metrics.Path[0] != '/' {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"metrics.path must start with /")
		}
	}

	if c.Feed.Enabled {
		if c.Feed.Addr == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "set feed.addr")
		}
		if c.Feed.Path == "" || c.Feed.Path[0] != '/' {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"feed.path must start with /")
		}
		if c.Feed.HistorySize < 0 || c.Feed.QueueSize < 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"feed.history_size and feed.queue_size must not be negative")
		}
	}

	return nil
}

// SaveToFile writes the configuration as indented JSON. The file is
// created with 0600 permissions.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "marshal configuration")
	}
	if err := safeWriteFile(path, data); err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", fmt.Sprintf("write %s", path))
	}
	return nil
}

// String renders the configuration as indented JSON with credentials
// masked, suitable for startup logging.
func (c *Config) String() string {
	clone := *c
	if clone.NATS.Password != "" {
		clone.NATS.Password = "[redacted]"
	}
	if clone.NATS.Token != "" {
		clone.NATS.Token = "[redacted]"
	}
	data, err := json.MarshalIndent(&clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("config (unprintable: %v)", err)
	}
	return string(data)
}
