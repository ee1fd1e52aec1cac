// Package admission decides, per incoming request, whether calling the
// scarce downstream resource is currently safe.
//
// # Overview
//
// The Controller is the orchestrating entry point. On a prospective call it
// consults, in strict order: the adaptively-tuned global limits, the global
// rate window, the static per-caller limits, and the connection admission
// gate. The first failed check short-circuits into a structured deny
// decision carrying a retry hint; denial is an expected hot-path outcome
// and is returned as a value, never an error.
//
// On completion the caller reports latency, success, and actual cost; the
// controller folds the outcome into the rate windows, releases the
// connection slot, and feeds the adaptive tuner.
//
// # Example
//
//	ctrl := admission.New(admission.Config{
//	    Baseline: adaptive.Limits{RequestsPerMinute: 60, CostPerMinute: 10000, BurstLimit: 10},
//	    Caller:   adaptive.Limits{RequestsPerMinute: 10, CostPerMinute: 2000, BurstLimit: 3},
//	})
//
//	decision := ctrl.CheckRateLimit("user-123", 250, admission.KindStandard)
//	if !decision.Allowed {
//	    // surface decision.RetryAfter to the caller
//	    return
//	}
//	// ... perform the downstream call ...
//	ctrl.RecordCompletion(ctx, &admission.Completion{
//	    CallerID:  "user-123",
//	    SlotID:    decision.SlotID,
//	    LatencyMs: 840,
//	    Success:   true,
//	    Cost:      212,
//	})
//
// # Fail-open posture
//
// Internal errors in the admission path (a window backend outage, for
// example) log at warn level and allow the request: availability is
// deliberately prioritized over strict enforcement.
package admission
