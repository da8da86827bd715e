// Package services defines shared helpers consumed by the probe, convert,
// encoding, and batch layers.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (format, not found, probe, validation, encode).
//   - Context helpers that stamp batch run IDs, job positions, and media paths
//     for logging.
//
// Use these helpers when wiring new operations so failures carry the offending
// file path or stream index and are classified uniformly.
package services
