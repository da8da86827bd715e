// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no ffkit-specific dependencies.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: typed stream properties plus the full decoded object in Fields
//   - Format: container-level metadata (duration, size, bitrate)
//   - ExitError: non-zero ffprobe exit with captured stderr
//
// Primary entry points:
//   - Inspect / Runner.Inspect: executes ffprobe and returns the parsed Result
//   - Parse: decodes a report that was captured elsewhere
//
// Streams missing index or codec_type are rejected with ErrMissingField
// rather than decoded with zero values.
package ffprobe
