// Package encoding runs ffmpeg: compiled conversion plans, clips, concat
// demuxer joins, and network stream captures.
//
// Runner captures stderr, turns ffmpeg status lines into Progress updates,
// and reports non-zero exits as services.ErrEncode carrying the exit status
// and the last stderr lines. Output directories are created before ffmpeg
// starts.
package encoding
