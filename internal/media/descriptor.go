package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"ffkit/internal/language"
	"ffkit/internal/media/ffprobe"
	"ffkit/internal/services"
	"ffkit/internal/timecode"
)

// Stream types reported by ffprobe's codec_type.
const (
	TypeVideo      = "video"
	TypeAudio      = "audio"
	TypeSubtitle   = "subtitle"
	TypeAttachment = "attachment"
)

// AmbiguousCodec is returned by VideoCodec when a file carries more than one
// video stream. Query the streams by index to get each codec.
const AmbiguousCodec = "<multiple video streams>"

// DefaultAudioBitrate is the audio bitrate (bit/s) assumed when neither the
// video nor the audio streams report one.
const DefaultAudioBitrate = 128000

// Prober runs the probe tool against a path.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Resolution is a width and height pair in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// StreamLanguage pairs a stream index with its normalized language.
type StreamLanguage struct {
	Index int
	Code  string
	Name  string
}

// Descriptor is the parsed, read-only description of one media file. A
// descriptor whose probe failed reports Invalid and keeps every derived field
// at its zero value. Descriptors are safe to share between goroutines.
type Descriptor struct {
	path     string
	fileSize int64
	invalid  bool
	parsed   parsed
}

type parsed struct {
	streams   []ffprobe.Stream
	format    ffprobe.Format
	positions map[int]int

	video        []int
	audio        []int
	subtitle     []int
	attachment   []int
	unrecognized []int

	resolutions map[int]Resolution
	frameRates  map[int]float64

	videoBitrate int64
	audioBitrate int64
	inferred     bool

	width             int
	height            int
	frameRate         float64
	frameRateFraction string

	duration   float64
	size       int64
	bitRate    int64
	videoCodec string
}

// Probe inspects path with prober and builds its descriptor. The returned
// descriptor is never nil; on failure it is marked invalid and the error
// carries services.ErrNotFound or services.ErrProbe.
func Probe(ctx context.Context, prober Prober, path string) (*Descriptor, error) {
	d := &Descriptor{path: path}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		d.invalid = true
		if err == nil {
			err = errors.New("not a regular file")
		}
		return d, services.Wrap(services.ErrNotFound, path, "probe", "media file unavailable", err)
	}
	d.fileSize = info.Size()

	result, err := prober.Inspect(ctx, path)
	if err != nil {
		d.invalid = true
		return d, services.Wrap(services.ErrProbe, path, "ffprobe", "file is malformed or unreadable", err)
	}
	if err := d.load(result); err != nil {
		d.invalid = true
		return d, err
	}
	return d, nil
}

// FromResult builds a descriptor from an already captured probe report.
// fileSize is used when the report does not state the container size.
func FromResult(path string, fileSize int64, result ffprobe.Result) (*Descriptor, error) {
	d := &Descriptor{path: path, fileSize: fileSize}
	if err := d.load(result); err != nil {
		d.invalid = true
		return d, err
	}
	return d, nil
}

func (d *Descriptor) load(result ffprobe.Result) error {
	p, err := parse(d.path, d.fileSize, result)
	if err != nil {
		return err
	}
	d.parsed = p
	return nil
}

// parse computes every derived attribute into a fresh value so a failure
// leaves the descriptor untouched.
func parse(path string, fileSize int64, result ffprobe.Result) (parsed, error) {
	p := parsed{
		streams:     append([]ffprobe.Stream(nil), result.Streams...),
		format:      result.Format,
		positions:   make(map[int]int, len(result.Streams)),
		resolutions: make(map[int]Resolution),
		frameRates:  make(map[int]float64),
	}

	for pos, stream := range p.streams {
		if _, dup := p.positions[stream.Index]; dup {
			return parsed{}, services.Wrap(services.ErrProbe, path, "parse", fmt.Sprintf("duplicate stream index %d", stream.Index), nil)
		}
		p.positions[stream.Index] = pos
	}

	p.duration = result.DurationSeconds()
	if p.duration <= 0 || math.IsNaN(p.duration) {
		p.duration = streamDuration(p.streams)
	}
	p.size = result.SizeBytes()
	if p.size <= 0 {
		p.size = fileSize
	}
	p.bitRate = result.BitRate()

	primaryWidth := -1
	for _, stream := range p.streams {
		switch strings.ToLower(stream.CodecType) {
		case TypeVideo:
			p.video = append(p.video, stream.Index)
			p.videoBitrate += stream.BitsPerSecond()

			res := displayResolution(stream)
			p.resolutions[stream.Index] = res
			fps := stream.FrameRate()
			p.frameRates[stream.Index] = fps
			if res.Width > primaryWidth {
				primaryWidth = res.Width
				p.width, p.height = res.Width, res.Height
				p.frameRate = fps
				p.frameRateFraction = stream.RFrameRate
			}
		case TypeAudio:
			p.audio = append(p.audio, stream.Index)
			p.audioBitrate += stream.BitsPerSecond()
		case TypeSubtitle:
			p.subtitle = append(p.subtitle, stream.Index)
		case TypeAttachment:
			p.attachment = append(p.attachment, stream.Index)
		default:
			p.unrecognized = append(p.unrecognized, stream.Index)
		}
	}

	inferBitrates(&p)

	switch len(p.video) {
	case 0:
	case 1:
		p.videoCodec = p.streams[p.positions[p.video[0]]].CodecName
	default:
		p.videoCodec = AmbiguousCodec
	}
	return p, nil
}

// displayResolution takes the larger of the coded and display heights and
// pairs it with the width from the same source.
func displayResolution(stream ffprobe.Stream) Resolution {
	if stream.CodedHeight > stream.Height {
		return Resolution{Width: stream.CodedWidth, Height: stream.CodedHeight}
	}
	return Resolution{Width: stream.Width, Height: stream.Height}
}

// inferBitrates fills in missing aggregate bitrates from the container size
// and duration. The results are estimates, flagged through inferred.
func inferBitrates(p *parsed) {
	if p.videoBitrate > 0 && p.audioBitrate > 0 {
		return
	}
	if p.duration <= 0 || p.size <= 0 {
		return
	}
	totalBits := 8 * float64(p.size)
	switch {
	case p.videoBitrate == 0 && p.audioBitrate == 0:
		p.audioBitrate = DefaultAudioBitrate
		p.videoBitrate = remainingBitrate(totalBits, p.audioBitrate, p.duration)
	case p.videoBitrate == 0:
		p.videoBitrate = remainingBitrate(totalBits, p.audioBitrate, p.duration)
	default:
		p.audioBitrate = remainingBitrate(totalBits, p.videoBitrate, p.duration)
	}
	p.inferred = true
}

func remainingBitrate(totalBits float64, known int64, duration float64) int64 {
	rate := (totalBits - float64(known)*duration) / duration
	if rate < 0 {
		return 0
	}
	return int64(math.Round(rate))
}

func streamDuration(streams []ffprobe.Stream) float64 {
	if len(streams) == 0 {
		return 0
	}
	if seconds, err := strconv.ParseFloat(strings.TrimSpace(streams[0].Duration), 64); err == nil && seconds > 0 {
		return seconds
	}
	if tag, ok := streams[0].Tag("DURATION"); ok {
		if seconds, err := timecode.ToSeconds(tag); err == nil {
			return seconds
		}
	}
	return 0
}

// Path returns the file the descriptor was built for.
func (d *Descriptor) Path() string { return d.path }

// Invalid reports whether probing or parsing failed.
func (d *Descriptor) Invalid() bool { return d.invalid }

// Streams returns a copy of the streams in reported order.
func (d *Descriptor) Streams() []ffprobe.Stream {
	return slices.Clone(d.parsed.streams)
}

// Format returns the container metadata.
func (d *Descriptor) Format() ffprobe.Format { return d.parsed.format }

// Stream returns the stream with the given index.
func (d *Descriptor) Stream(index int) (ffprobe.Stream, bool) {
	pos, ok := d.parsed.positions[index]
	if !ok {
		return ffprobe.Stream{}, false
	}
	return d.parsed.streams[pos], true
}

// StreamType returns the codec_type of the stream with the given index.
func (d *Descriptor) StreamType(index int) (string, bool) {
	stream, ok := d.Stream(index)
	if !ok {
		return "", false
	}
	return strings.ToLower(stream.CodecType), true
}

// VideoStreams returns the indices of the video streams.
func (d *Descriptor) VideoStreams() []int { return slices.Clone(d.parsed.video) }

// AudioStreams returns the indices of the audio streams.
func (d *Descriptor) AudioStreams() []int { return slices.Clone(d.parsed.audio) }

// SubtitleStreams returns the indices of the subtitle streams.
func (d *Descriptor) SubtitleStreams() []int { return slices.Clone(d.parsed.subtitle) }

// AttachmentStreams returns the indices of the attachment streams.
func (d *Descriptor) AttachmentStreams() []int { return slices.Clone(d.parsed.attachment) }

// UnrecognizedStreams returns the indices of streams of any other type.
func (d *Descriptor) UnrecognizedStreams() []int { return slices.Clone(d.parsed.unrecognized) }

// VideoBitrate returns the aggregate video bitrate in bit/s.
func (d *Descriptor) VideoBitrate() int64 { return d.parsed.videoBitrate }

// AudioBitrate returns the aggregate audio bitrate in bit/s.
func (d *Descriptor) AudioBitrate() int64 { return d.parsed.audioBitrate }

// BitrateInferred reports whether either aggregate bitrate was estimated from
// the container size rather than read from the streams. Estimated values are
// not measurements; rate-control decisions built on them inherit the error.
func (d *Descriptor) BitrateInferred() bool { return d.parsed.inferred }

// Width returns the primary video width.
func (d *Descriptor) Width() int { return d.parsed.width }

// Height returns the primary video height.
func (d *Descriptor) Height() int { return d.parsed.height }

// FrameRate returns the primary video frame rate in frames per second.
func (d *Descriptor) FrameRate() float64 { return d.parsed.frameRate }

// FrameRateFraction returns the primary video r_frame_rate as reported.
func (d *Descriptor) FrameRateFraction() string { return d.parsed.frameRateFraction }

// Resolution returns the computed resolution of a video stream.
func (d *Descriptor) Resolution(index int) (Resolution, bool) {
	res, ok := d.parsed.resolutions[index]
	return res, ok
}

// StreamFrameRate returns the frame rate of a video stream.
func (d *Descriptor) StreamFrameRate(index int) (float64, bool) {
	fps, ok := d.parsed.frameRates[index]
	return fps, ok
}

// Duration returns the duration in seconds.
func (d *Descriptor) Duration() float64 { return d.parsed.duration }

// DurationTimecode returns the duration in canonical timecode form.
func (d *Descriptor) DurationTimecode() string { return timecode.FromSeconds(d.parsed.duration) }

// Size returns the container size in bytes.
func (d *Descriptor) Size() int64 { return d.parsed.size }

// BitRate returns the container bitrate in bit/s as reported by the probe.
func (d *Descriptor) BitRate() int64 { return d.parsed.bitRate }

// VideoCodec returns the codec of the only video stream, AmbiguousCodec when
// there are several, and "" when there are none.
func (d *Descriptor) VideoCodec() string { return d.parsed.videoCodec }

// VideoCodecs returns the codec of every video stream in index order.
func (d *Descriptor) VideoCodecs() []string {
	codecs := make([]string, 0, len(d.parsed.video))
	for _, index := range d.parsed.video {
		codec, _ := d.StreamCodec(index)
		codecs = append(codecs, codec)
	}
	return codecs
}

// StreamCodec returns codec_name for the stream with the given index.
func (d *Descriptor) StreamCodec(index int) (string, bool) {
	stream, ok := d.Stream(index)
	if !ok {
		return "", false
	}
	return stream.CodecName, true
}

// Languages returns the normalized language of each stream of the given type.
// Streams without a recognizable language are reported with an empty code.
func (d *Descriptor) Languages(kind string) []StreamLanguage {
	var indices []int
	switch strings.ToLower(kind) {
	case TypeVideo:
		indices = d.parsed.video
	case TypeAudio:
		indices = d.parsed.audio
	case TypeSubtitle:
		indices = d.parsed.subtitle
	case TypeAttachment:
		indices = d.parsed.attachment
	default:
		indices = d.parsed.unrecognized
	}
	out := make([]StreamLanguage, 0, len(indices))
	for _, index := range indices {
		stream, _ := d.Stream(index)
		code := language.ExtractFromTags(stream.Tags)
		out = append(out, StreamLanguage{Index: index, Code: code, Name: language.DisplayName(code)})
	}
	return out
}

// BitsPerPixel returns video bits per pixel per frame, a quality proxy used
// to pick encoding profiles. It returns -1 when the inputs are missing.
func (d *Descriptor) BitsPerPixel() float64 {
	pixels := float64(d.parsed.width) * float64(d.parsed.height)
	if pixels <= 0 || d.parsed.frameRate <= 0 || d.parsed.videoBitrate <= 0 {
		return -1
	}
	return float64(d.parsed.videoBitrate) / (pixels * d.parsed.frameRate)
}
