// Package media turns ffprobe reports into read-only Descriptors.
//
// A Descriptor partitions a file's streams by type, sums per-type bitrates
// (estimating them from container size and duration when streams omit them),
// picks the primary resolution and frame rate, and exposes a recursive query
// engine over each stream's decoded key/value tree.
//
// Probe is the entry point for a single file; ScanDirectory probes every media
// file in a directory and collects the ones that could not be read.
package media
