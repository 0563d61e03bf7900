// Package ruleflow provides an event-driven automation engine for business
// processes: when an event occurs matching a rule's trigger and conditions,
// the rule's action is dispatched, immediately or after a configured delay.
//
// # Architecture
//
// Events flow through a fixed pipeline:
//
//	┌─────────────────────────────────────┐
//	│           NATS Events               │  ruleflow.events.<kind>
//	│   (job_created, invoice_overdue...) │
//	└──────────────────┬──────────────────┘
//	                   ↓ ingest (worker pool)
//	┌─────────────────────────────────────┐
//	│             Engine                  │  load rules, match trigger
//	│    (matcher + condition checks)     │  kind and per-kind config
//	└──────────────────┬──────────────────┘
//	                   ↓ matched rules
//	┌─────────────────────────────────────┐
//	│            Dispatcher               │  resolve templates, apply
//	│     (delay scheduler + handlers)    │  delays, invoke handlers
//	└──────────────────┬──────────────────┘
//	                   ↓ outcomes
//	┌─────────────────────────────────────┐
//	│            Reporters                │  slog, prometheus, NATS
//	│   (fan-out, websocket live feed)    │  ruleflow.outcomes.<status>
//	└─────────────────────────────────────┘
//
// Actions leave the process as NATS command messages
// (ruleflow.commands.task.create, ruleflow.commands.email.send, ...) or as
// direct HTTP webhook deliveries. Downstream systems own the side effects;
// the engine owns matching, templating, delay, and reporting.
//
// # Packages
//
// Core pipeline:
//   - automation: the data model. Rule, Trigger, Action, Condition, Event,
//     Outcome, and their JSON/YAML codecs.
//   - engine: trigger matching and per-event orchestration.
//   - dispatch: action dispatch with validation, templating, and the
//     delayed-task scheduler.
//   - handler: action handler contracts plus the NATS bridge and webhook
//     implementations.
//   - template: placeholder substitution for message bodies and titles.
//   - report: outcome reporting (slog, NATS publisher, fan-out) and the
//     websocket live feed.
//
// Rule persistence:
//   - store: the Store contract, in-memory and directory-of-files backends,
//     and the TTL cache decorator.
//   - store/natskv: rules in NATS JetStream KV with CAS updates.
//   - store/sqlite: rules in SQLite.
//
// Infrastructure:
//   - natsclient: managed NATS connection (reconnect, circuit breaker, KV).
//   - ingest: NATS subscription, decode, and worker-pool fan-in.
//   - config: JSON config document, environment overrides, validation.
//   - service: lifecycle assembly of everything above.
//   - metric: prometheus registry wrapper and metrics HTTP server.
//   - health: component health snapshots and aggregation.
//   - errors: classified error wrapping (transient, invalid, fatal).
//
// Utilities:
//   - pkg/retry: bounded retry with exponential backoff and jitter.
//   - pkg/worker: generic bounded worker pool.
//   - pkg/buffer: fixed-capacity ring buffer.
//   - pkg/cache: TTL cache with statistics.
//
// # Usage Patterns
//
// Library mode, no NATS required:
//
//	registry := rec.Registry() // or wire your own handler.Registry
//	d, _ := dispatch.New(registry, report.NewSlog(logger))
//	eng, _ := engine.New(d, logger, nil)
//	defer eng.Close()
//
//	eng.ProcessEvent(ctx, automation.NewJobCreatedEvent(job), rules)
//
// Service mode, the full pipeline:
//
//	cfg, _ := config.Load("ruleflow.json")
//	svc, _ := service.New(cfg, logger)
//	if err := svc.Start(ctx); err != nil { ... }
//	defer svc.Stop(cfg.Service.ShutdownTimeout)
//
// # Extension Points
//
//  1. Handlers: implement a handler contract (TaskHandler, EmailHandler,
//     WebhookHandler, ...) and place it in the handler.Registry to route an
//     action kind somewhere new.
//  2. Stores: implement store.Store to keep rules anywhere; the cache
//     decorator and the service wiring work with any backend.
//  3. Reporters: implement report.Reporter and add it to the fan-out to
//     observe outcomes.
//
// # Design Principles
//
// Separation of concerns:
//   - Matching ≠ dispatching: the engine decides what fires, the
//     dispatcher decides how and when.
//   - Dispatch ≠ side effects: handlers emit commands; downstream systems
//     perform the work.
//
// Testability:
//   - Explicit dependencies (no globals)
//   - Recording doubles for handlers and reporters
//   - Integration tests with testcontainers
//
// Predictability:
//   - Rules validate on write, the engine trusts stored rules
//   - Outcomes report every decision, including skips
//   - Bounded queues and worker pools (backpressure over unbounded growth)
//
// # Binary
//
// Build and run the daemon:
//
//	go build -o bin/ruleflow ./cmd/ruleflow
//
//	# Run on defaults (NATS at localhost:4222, in-memory rules)
//	./bin/ruleflow
//
//	# Run with a config document
//	./bin/ruleflow --config configs/ruleflow.json
//
//	# Validate configuration only
//	./bin/ruleflow --config configs/ruleflow.json --validate
package ruleflow
