// Package health aggregates named boolean health probes into one status.
//
// Components register probes (downstream reachability, backend liveness,
// circuit state) and callers ask for the aggregate: the system is healthy
// only if every probe passes within its timeout. A probe that returns an
// error, times out, or panics marks the system unhealthy.
package health
