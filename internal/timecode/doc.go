// Package timecode converts between HH:MM:SS.mmm strings and elapsed seconds.
//
// Every function is pure. Output is always canonical: hours are unbounded,
// minutes and seconds are zero-padded to two digits, and milliseconds are
// always present, so FromSeconds(ToSeconds(x)) normalizes any accepted input.
package timecode
