// Package metric provides Prometheus-based metrics collection and an HTTP
// server for platform monitoring and observability.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (service status, event processing, NATS health) and
// custom service-specific metrics. It includes an HTTP server exposing
// metrics in Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Service Registry: Extensible registration for service-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// application concerns (service-specific metrics) while providing a unified
// metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(registry, metric.WithPort(9090))
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core platform metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("engine", 2)
//	coreMetrics.RecordEventReceived("engine", "job_created")
//	coreMetrics.RecordNATSStatus(true)
//
// The server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/health.
//
// # Core Metrics
//
// The package automatically registers core platform metrics tracking:
//
//   - Service lifecycle: service_status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)
//   - Event flow: events_received_total, events_processed_total
//   - Automation results: outcomes_total by action and status
//   - Processing performance: processing_duration_seconds
//   - NATS connectivity: nats_connected, nats_rtt_milliseconds, nats_reconnects_total
//   - Error tracking: errors_total by classification
//
// # Service-Specific Metrics
//
// Components register their own metrics through the MetricsRegistrar
// interface. Registration is keyed by component and metric name, so two
// components cannot silently fight over the same collector:
//
//	matched := prometheus.NewCounterVec(prometheus.CounterOpts{
//	    Namespace: "ruleflow",
//	    Subsystem: "engine",
//	    Name:      "rules_matched_total",
//	    Help:      "Rules whose trigger matched an event",
//	}, []string{"trigger"})
//
//	if err := registry.RegisterCounterVec("engine", "rules_matched_total", matched); err != nil {
//	    return err
//	}
//
// Duplicate registrations return an invalid-class error rather than
// panicking, which keeps a misconfigured component from taking the whole
// process down at startup.
//
// # Health Endpoint
//
// By default /health answers 200 OK whenever the server is up. The service
// layer installs its aggregated component health report with
// WithHealthHandler so a single port serves scrapes and probes.
package metric
