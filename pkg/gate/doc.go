// Package gate composes the admission subsystem from configuration: the
// admission controller with its window backend, the maintenance
// scheduler, the circuit breaker registry, the retry defaults, and the
// telemetry surfaces. Callers that want the pieces individually can use
// the underlying packages directly.
package gate
