// Package adaptive retunes effective rate limits from observed downstream
// performance.
//
// # Overview
//
// The Tuner owns the live Limits consumed by admission checks,
// distinct from the statically configured baseline. It watches a rolling
// buffer of completion samples (latency, success) and periodically decides
// to tighten limits when performance degrades or loosen them when the
// downstream is demonstrably healthy, always clamped inside configured
// [min, max] bounds.
//
// Every adaptation is appended to a bounded history ring for observability;
// the control logic itself never reads the history back.
//
// # Oscillation control
//
// Adaptation runs at most once per MinInterval regardless of how often the
// check is invoked, so repeated identical decisions are allowed but cannot
// thrash faster than the interval. The bounds prevent runaway collapse to
// zero or unbounded growth.
package adaptive
