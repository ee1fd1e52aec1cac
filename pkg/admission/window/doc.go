// Package window implements per-minute rate windows for admission control.
//
// # Overview
//
// A RateWindow holds the counters for one (scope, minute) pair: request
// count, cost consumed, error count, and incrementally-updated latency and
// success-rate averages. The scope is either the single global scope or a
// caller identifier.
//
// Windows are created lazily on first touch, superseded when the minute
// rolls over, and purged once older than a retention horizon. Purging runs
// on an independent schedule, never on the request path.
//
// # Backends
//
// Counter state lives behind the Backend interface (get/set/delete per
// scope+minute key) so a multi-instance deployment can share counters
// without changing the control algorithms:
//
//   - Memory: fast in-process storage (default, no persistence)
//   - Redis: externally-shared counters for multi-instance deployments
//   - SQLite: file-based persistence for single-instance deployments
//
// # Thread Safety
//
// Store serializes all read-modify-write cycles with an internal mutex, so
// concurrent Touch/Increment/UpdateOutcome calls are safe with any backend.
package window
