// Package batch runs ffmpeg jobs on a bounded worker pool and implements the
// directory tools built on it.
//
// Queue executes jobs with at most MaxConcurrent running at once. Each job
// starts at most once, cancellation is only checked before a job starts, and
// a failing job never stops the others. Outcomes are written to the history
// store when one is configured.
//
// Workflow layers the directory tools on top: ConvertDirectories moves
// sources that are not in the target codec aside and re-encodes them with a
// profile whose crf follows the source's bits per pixel, Analyze tallies the
// remaining backlog per directory, and BitsPerPixelReport exports the
// distribution as CSV.
package batch
