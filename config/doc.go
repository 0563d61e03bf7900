// Package config loads, validates, and saves the service
// configuration.
//
// Configuration is layered: compiled-in defaults from DefaultConfig,
// an optional JSON document, and RULEFLOW_* environment overrides,
// applied in that order. A document only needs the fields it changes;
// everything else keeps its default. Duration fields accept Go
// duration strings in the document:
//
//	{
//	  "service": {"shutdown_timeout": "30s"},
//	  "store": {"backend": "sqlite", "path": "rules.db"}
//	}
//
// The usual entry point is Load:
//
//	cfg, err := config.Load("ruleflow.json")
//	if err != nil {
//	    return err
//	}
//
// Validation failures are classified through the errors package:
// absent required fields wrap errors.ErrMissingConfig and unusable
// values wrap errors.ErrInvalidConfig, so callers can test them with
// errors.IsInvalid.
//
// Environment overrides cover the deployment-facing settings: NATS
// URL and credentials, log level and format, the store backend and
// its location, the metrics port, and the feed address. Credentials
// provided this way never appear in String output, which masks
// nats.password and nats.token.
package config
