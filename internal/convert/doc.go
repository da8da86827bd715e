// Package convert builds ffmpeg conversion plans from probed media and
// compiles them into argument lists.
//
// A Plan collects per-stream intents (video, audio, subtitle, attachment).
// Each Add call validates its intent immediately and leaves the plan
// untouched on failure. Compile produces the arguments in a fixed order:
// verbosity, seek and input, stream maps, video, audio, subtitle flags,
// and finally the output path.
//
// Profiles and QualityTable choose crf and audio settings for batch
// conversions from a file's bits per pixel.
package convert
