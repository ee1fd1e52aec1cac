// Package retry provides bounded retry with exponential backoff around any
// downstream operation, typically the circuit-breaker-wrapped call.
//
// A pluggable predicate decides which errors are worth retrying; the
// default treats transient network failures and 5xx-equivalent statuses as
// retryable and everything else (validation errors, auth failures, open
// circuits) as permanent. Exhausting the attempt budget returns an
// *ExhaustedError wrapping the last underlying error.
package retry
