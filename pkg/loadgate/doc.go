// Package loadgate gates shutdown on the host's 1-minute load average.
// A single sample decides: load above the ceiling defers the entire run
// until the scheduler invokes curfew again. No hysteresis, no retry.
package loadgate
