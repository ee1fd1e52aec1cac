// Package telemetry groups the observability surfaces of the admission
// subsystem.
//
// # Components
//
//   - logging: structured slog logger construction from configuration
//   - perf: per-operation latency and outcome aggregates
//   - health: named health probes with concurrent aggregation
//
// Prometheus instrumentation for the admission path itself lives next to
// the controller in the admission package, so the metric names stay with
// the code that emits them.
//
// # Usage
//
//	// Install the configured logger as the process default.
//	logging.SetDefault(logging.Config{Level: "info", Format: "json"})
//
//	// Track a downstream call.
//	monitor := perf.NewMonitor()
//	err := monitor.Track(ctx, "completion", callUpstream)
//
//	// Aggregate component health.
//	checker := health.New(0)
//	checker.Register("windows", windowProbe)
//	status := checker.CheckAll(ctx)
package telemetry
