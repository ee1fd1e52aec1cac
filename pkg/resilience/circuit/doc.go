// Package circuit provides per-named-resource failure isolation so one bad
// downstream period does not cascade into total unavailability.
//
// # State machine
//
//	CLOSED --(failures reach threshold within window)--> OPEN
//	OPEN   --(reset timeout elapses)-->                  HALF_OPEN
//	HALF_OPEN --(trial success)-->                       CLOSED
//	HALF_OPEN --(trial failure)-->                       OPEN
//
// While OPEN, Execute rejects immediately with *OpenError without invoking
// the operation. While HALF_OPEN, exactly one trial call is let through;
// concurrent arrivals fail fast until the trial resolves.
//
// Breakers are scoped per named resource via the Registry, so independent
// downstream dependencies fail independently.
package circuit
