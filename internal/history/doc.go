// Package history persists ffmpeg job outcomes in a SQLite database so
// `ffkit history` can report past conversions, batch runs, and failures.
//
// Jobs are inserted as running before ffmpeg starts and finished with their
// status, sizes, and error classification afterwards. ResetRunning cleans up
// after processes that died mid-job.
package history
