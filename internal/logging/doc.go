// Package logging assembles structured slog loggers and formatting helpers used
// across mulmo.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, stages, beat keys, and languages. The package also
// provides a no-op logger for tests and wiring code that cannot fail, a tee
// handler for per-run log files, and retention helpers for pruning old runs.
package logging
