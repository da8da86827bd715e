// Package audio ranks the audio streams of a probed file so profile
// conversions encode one primary track.
//
// Candidates in the preferred language are considered first, falling back to
// every audio stream when none match. Ranking favors channel count, then
// lossless sources (TrueHD, DTS-HD MA, FLAC, PCM), then the default
// disposition, then report order.
package audio
