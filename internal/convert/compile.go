package convert

import (
	"fmt"
	"strconv"

	"ffkit/internal/services"
	"ffkit/internal/timecode"
)

// Two-stage seeking: ffmpeg jumps to a keyframe slowSeekGap seconds before
// the clip start, then decodes accurately from there. Clips starting within
// the first fastSeekMinimum seconds skip the coarse jump.
const (
	slowSeekGap     = 90
	fastSeekMinimum = slowSeekGap + 15
)

var videoEncoderNames = map[string]string{
	EncoderX264: "libx264",
	EncoderX265: "libx265",
	EncoderVP8:  "libvpx",
	EncoderVP9:  "libvpx-vp9",
	EncoderCopy: "copy",
}

var audioEncoderNames = map[string]string{
	EncoderAAC:    "aac",
	EncoderOpus:   "libopus",
	EncoderVorbis: "libvorbis",
	EncoderCopy:   "copy",
}

// Window is a clip range in timecode form.
type Window struct {
	Start string
	End   string
}

type seek struct {
	fast  string
	start string
	end   string
}

// Compile turns plan into ffmpeg arguments (without the binary name). clip
// may be nil. The plan is marked compiled and accepts no further intents;
// compiling it again yields the same arguments.
func Compile(plan *Plan, clip *Window) ([]string, error) {
	if plan == nil {
		return nil, services.Wrap(services.ErrValidation, "", "compile", "plan is nil", nil)
	}
	input := plan.desc.Path()
	if plan.Empty() {
		return nil, services.Wrap(services.ErrValidation, input, "compile", "plan has no stream intents", nil)
	}

	var window *seek
	if clip != nil {
		s, err := fastSeek(input, *clip)
		if err != nil {
			return nil, err
		}
		window = &s
	}

	args := []string{"-v", strconv.Itoa(plan.verbosity)}
	if plan.overwrite {
		args = append(args, "-y")
	}
	if window != nil {
		args = append(args, "-ss", window.fast, "-i", input, "-ss", window.start, "-to", window.end)
	} else {
		args = append(args, "-i", input)
	}

	for _, group := range [][]int{plan.videoIndices(), plan.audioIndices(), plan.subtitle, plan.attachment, plan.other} {
		for _, index := range group {
			args = append(args, "-map", fmt.Sprintf("0:%d", index))
		}
	}

	copied := false
	indexed := len(plan.video) > 1
	for n, stream := range plan.video {
		flag := videoFlag(indexed, n)
		if stream.encoder == EncoderCopy {
			copied = true
			args = append(args, flag("-c:v"), "copy")
			continue
		}
		args = append(args, flag("-c:v"), videoEncoderNames[stream.encoder])
		args = append(args, videoRateArgs(stream, flag)...)
		width, height := stream.width, stream.height
		if width == -1 && height == -1 {
			if res, ok := plan.desc.Resolution(stream.index); ok && res.Width > 0 && res.Height > 0 {
				width, height = res.Width, res.Height
			}
		}
		args = append(args, flag("-vf"), fmt.Sprintf("scale=%d:%d", width, height))
		if stream.encoder == EncoderX264 || stream.encoder == EncoderX265 {
			args = append(args, flag("-preset"), stream.preset)
		}
	}

	for n, stream := range plan.audio {
		codecFlag := fmt.Sprintf("-c:a:%d", n)
		bitrateFlag := fmt.Sprintf("-b:a:%d", n)
		switch stream.encoder {
		case EncoderCopy:
			copied = true
			args = append(args, codecFlag, "copy")
		case EncoderOpus:
			args = append(args, codecFlag, audioEncoderNames[EncoderOpus])
			if stream.channels == LayoutMono {
				args = append(args, "-af", "aformat=channel_layouts=mono")
			}
			args = append(args, bitrateFlag, kbit(stream.bitrate))
			if stream.bitrate != DefaultAudioKbps {
				args = append(args, "-vbr", "constrained")
			}
		default:
			args = append(args, codecFlag, audioEncoderNames[stream.encoder], bitrateFlag, kbit(stream.bitrate))
		}
	}

	for range plan.subtitle {
		copied = true
		args = append(args, "-c:s", "copy")
	}
	if len(plan.attachment) > 0 {
		copied = true
		args = append(args, "-c:t", "copy")
	}
	if len(plan.other) > 0 {
		copied = true
		args = append(args, "-c:d", "copy")
	}

	if copied && window != nil {
		args = append(args, "-avoid_negative_ts", "1")
	}
	args = append(args, plan.output)

	plan.compiled = true
	return args, nil
}

func videoRateArgs(stream videoStream, flag func(string) string) []string {
	rate := kbit(stream.rate)
	vp := stream.encoder == EncoderVP8 || stream.encoder == EncoderVP9
	switch stream.rateControl {
	case RateCBR:
		if vp {
			return []string{flag("-minrate"), rate, flag("-maxrate"), rate, flag("-b:v"), rate}
		}
		return []string{flag("-b:v"), rate}
	case RateCRF:
		args := []string{flag("-crf"), strconv.Itoa(stream.rate)}
		if stream.encoder == EncoderVP9 {
			args = append(args, flag("-b:v"), "0")
		}
		return args
	case RateVBR:
		return []string{flag("-b:v"), rate}
	default:
		return nil
	}
}

// videoFlag scopes video options to output video stream n when the plan
// carries more than one video intent. A single intent keeps the bare flags.
func videoFlag(indexed bool, n int) func(string) string {
	return func(name string) string {
		if !indexed {
			return name
		}
		switch name {
		case "-c:v", "-b:v":
			return fmt.Sprintf("%s:%d", name, n)
		case "-vf":
			return fmt.Sprintf("-filter:v:%d", n)
		default:
			return fmt.Sprintf("%s:v:%d", name, n)
		}
	}
}

// fastSeek splits a clip window into the coarse input seek and the accurate
// output trim relative to it.
func fastSeek(input string, clip Window) (seek, error) {
	start, err := timecode.ToSeconds(clip.Start)
	if err != nil {
		return seek{}, err
	}
	end, err := timecode.ToSeconds(clip.End)
	if err != nil {
		return seek{}, err
	}
	if end <= start {
		return seek{}, services.Wrap(services.ErrValidation, input, "clip",
			fmt.Sprintf("end %s must be after start %s", clip.End, clip.Start), nil)
	}

	fast := timecode.Zero
	if start >= fastSeekMinimum {
		if fast, _, err = timecode.Subtract(clip.Start, timecode.FromSeconds(slowSeekGap)); err != nil {
			return seek{}, err
		}
	}
	relStart, _, err := timecode.Subtract(clip.Start, fast)
	if err != nil {
		return seek{}, err
	}
	relEnd, _, err := timecode.Subtract(clip.End, fast)
	if err != nil {
		return seek{}, err
	}
	return seek{fast: fast, start: relStart, end: relEnd}, nil
}

func kbit(value int) string {
	return strconv.Itoa(value) + "k"
}

func (p *Plan) videoIndices() []int {
	out := make([]int, 0, len(p.video))
	for _, stream := range p.video {
		out = append(out, stream.index)
	}
	return out
}

func (p *Plan) audioIndices() []int {
	out := make([]int, 0, len(p.audio))
	for _, stream := range p.audio {
		out = append(out, stream.index)
	}
	return out
}
