// Package logs locates and tails the files written by internal/logging.
//
// The shared ffkit.log and the per-run batch-<run>.log files live side by side
// in the configured log directory. Tail reads the last N lines with bounded
// memory, Follow polls for appended lines until its context is cancelled, and
// MatchLevel filters console or JSON lines by severity so `ffkit logs --level`
// works for either log format.
package logs
