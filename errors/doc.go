// Package errors provides standardized error handling patterns for RuleFlow components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// Classification lets the rule stores, NATS transports, and action handlers
// make informed decisions about retries and degradation without hardcoded
// error string matching. Note that the dispatch path itself never propagates
// errors (failed outcomes are reported, not raised); classification matters
// at the edges: connections, stores, configuration.
//
// # Error Classification
//
//   - Transient: network timeouts, connection issues, KV revision conflicts (retry recommended)
//   - Invalid: malformed rule definitions, bad event payloads, validation failures (do not retry)
//   - Fatal: broken configuration, unrecoverable startup states (stop processing)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	if rule == nil {
//	    return errors.ErrRuleNotFound
//	}
//
// Wrap errors with context for debugging:
//
//	if err := store.Put(ctx, rule); err != nil {
//	    return errors.Wrap(err, "RuleStore", "Put", "persist rule")
//	}
//
// Check classification for retry logic:
//
//	if err := publish(msg); err != nil {
//	    if errors.IsTransient(err) {
//	        // retry with backoff
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format enables consistent log parsing and operational monitoring. The
// Wrap family of functions applies the pattern while preserving error
// classification through the chain:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // Retryable
//	errors.WrapInvalid(err, "Component", "Method", "action")    // Validation
//	errors.WrapFatal(err, "Component", "Method", "action")      // Unrecoverable
//
// The generic Wrap() preserves the original error's classification.
//
// # Standard Error Variables
//
// Pre-defined variables cover the common conditions, organized by category:
//
//   - Component lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrShuttingDown
//   - Connections: ErrNoConnection, ErrConnectionLost, ErrSubscriptionFailed
//   - Rule and event data: ErrInvalidRule, ErrInvalidData, ErrParsingFailed
//   - Rule stores: ErrRuleNotFound, ErrRuleExists, ErrStoreClosed, ErrRevisionConflict
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//
// Use these instead of creating custom error messages so errors.Is checks
// work across package boundaries.
//
// # Integration with errors.As/Is
//
//	var ce *errors.ClassifiedError
//	if stderrors.As(err, &ce) {
//	    log.Printf("component=%s class=%s", ce.Component, ce.Class)
//	}
//
//	wrapped := errors.Wrap(errors.ErrConnectionTimeout, "Ingest", "Subscribe", "drain")
//	errors.IsTransient(wrapped) // true, classification preserved
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified
// as Transient, so context-based timeouts take the same handling path as
// network timeouts.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
