// Package perf instruments downstream operations with per-name rolling
// duration statistics and structured performance log entries.
//
// Monitor wraps any operation, records its duration and outcome, and
// propagates the operation's own result transparently. Stats are bounded
// (a fixed set of aggregates per name, not a sample log), so memory use
// does not grow with traffic.
package perf
