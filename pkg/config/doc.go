// Package config defines the admission subsystem's configuration surface:
// YAML loading, defaults, validation, environment overrides, and live
// reload of the baseline limits.
//
// # Loading sequence
//
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply CHATTERBOT_GATE_* environment variable overrides
//  4. Validate the final configuration
//
// Every option has a documented default, so a zero-value Config run
// through ApplyDefaults is immediately usable.
package config
