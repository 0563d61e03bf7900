// Package health provides health status tracking and aggregation for
// platform components.
//
// Components report their state to a shared Monitor; the service layer
// aggregates those reports into a single system status and serves it over
// HTTP next to the metrics endpoint.
//
// # Status Model
//
// A Status carries one of three states:
//
//   - healthy: the component is operating normally
//   - degraded: the component works but with reduced capability (for
//     example, webhook deliveries are being retried)
//   - unhealthy: the component cannot do its job
//
// Statuses nest: an aggregate carries the per-component reports in
// SubStatuses, so an operator can see which component dragged the system
// down without extra queries.
//
// # Monitor
//
// Monitor is a thread-safe registry of per-component statuses:
//
//	monitor := health.NewMonitor()
//	monitor.UpdateHealthy("engine", "rules loaded")
//	monitor.UpdateFromError("store", err)
//
//	system := monitor.AggregateHealth("ruleflow")
//	if system.IsUnhealthy() {
//	    // page someone
//	}
//
// Aggregation follows worst-state-wins: any unhealthy component makes the
// system unhealthy; otherwise any degraded component makes it degraded.
//
// # HTTP Endpoint
//
// Monitor.Handler returns an http.Handler serving the JSON aggregate,
// answering 503 when the system is unhealthy so load balancer probes fail
// over. The service mounts it on the metrics server:
//
//	server := metric.NewServer(registry,
//	    metric.WithHealthHandler(monitor.Handler("ruleflow")))
//
// # Error Sanitization
//
// Error text recorded through FromError or UpdateFromError is sanitized
// before it becomes visible: URLs, file paths, IP addresses, ports, and
// credential-shaped fragments are replaced with placeholders. Health
// endpoints are often reachable from places the underlying systems are
// not, so raw connection strings stay out of them.
package health
