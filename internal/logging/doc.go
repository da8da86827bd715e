// Package logging assembles structured slog loggers and formatting helpers used
// across ffkit.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so batch code can tag log lines
// with run IDs, job positions, and media paths. NewRunLogger tees a logger into
// a per-run file and PruneRunLogs enforces log retention. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
