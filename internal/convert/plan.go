package convert

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"ffkit/internal/fileutil"
	"ffkit/internal/logging"
	"ffkit/internal/media"
	"ffkit/internal/services"
)

// Video encoders.
const (
	EncoderX264 = "x264"
	EncoderX265 = "x265"
	EncoderVP8  = "vp8"
	EncoderVP9  = "vp9"
	EncoderCopy = "copy"
)

// Audio encoders.
const (
	EncoderAAC    = "aac"
	EncoderOpus   = "opus"
	EncoderVorbis = "vorbis"
)

// Rate-control methods.
const (
	RateCBR = "cbr"
	RateVBR = "vbr"
	RateCRF = "crf"
)

// Channel layouts.
const (
	LayoutMono   = "mono"
	LayoutStereo = "stereo"
)

// DefaultStream selects the first stream of the intent's type.
const DefaultStream = -1

// DefaultAudioKbps is used when an audio intent carries no usable bitrate.
const DefaultAudioKbps = 128

// DefaultVerbosity is ffmpeg's -v level for compiled plans.
const DefaultVerbosity = 24

// Presets lists the x264/x265 speed presets from slowest to fastest.
var Presets = []string{
	"placebo", "veryslow", "slower", "slow", "medium",
	"fast", "faster", "veryfast", "superfast", "ultrafast",
}

const (
	maxCRFX26x = 51
	maxCRFVP   = 63
)

// VideoIntent asks for one video stream in the output. Stream is a source
// index or DefaultStream. Rate is kbit/s for cbr and vbr and the quality
// factor for crf. Width and Height of -1 (or 0) keep the source dimension.
type VideoIntent struct {
	Stream      int
	Encoder     string
	RateControl string
	Rate        float64
	Preset      string
	Width       int
	Height      int
}

// AudioIntent asks for one audio stream in the output.
type AudioIntent struct {
	Stream      int
	Encoder     string
	BitrateKbps float64
	Channels    string
}

type videoStream struct {
	index       int
	encoder     string
	rateControl string
	rate        int
	preset      string
	width       int
	height      int
}

type audioStream struct {
	index    int
	encoder  string
	bitrate  int
	channels string
}

// Plan is the set of stream intents for one ffmpeg invocation producing one
// output file. Plans are built by a single goroutine and may not be changed
// once compiled.
type Plan struct {
	desc      *media.Descriptor
	output    string
	overwrite bool
	verbosity int
	logger    *slog.Logger

	video      []videoStream
	audio      []audioStream
	subtitle   []int
	attachment []int
	other      []int

	warnings []string
	compiled bool
}

type planOptions struct {
	overwrite bool
	verbosity int
	logger    *slog.Logger
}

// Option customizes NewPlan.
type Option func(*planOptions)

// WithOverwrite keeps the requested output path even when a file exists there.
func WithOverwrite(overwrite bool) Option {
	return func(o *planOptions) { o.overwrite = overwrite }
}

// WithVerbosity sets ffmpeg's -v level.
func WithVerbosity(level int) Option {
	return func(o *planOptions) { o.verbosity = level }
}

// WithLogger routes plan warnings to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *planOptions) { o.logger = logger }
}

// NewPlan starts an empty plan that converts desc into output. Unless
// overwrite is requested the output path is moved aside ("name_1.ext") when
// something already exists there.
func NewPlan(desc *media.Descriptor, output string, opts ...Option) (*Plan, error) {
	if desc == nil || desc.Invalid() {
		path := ""
		if desc != nil {
			path = desc.Path()
		}
		return nil, services.Wrap(services.ErrValidation, path, "new plan", "media descriptor is invalid", nil)
	}
	if strings.TrimSpace(output) == "" {
		return nil, services.Wrap(services.ErrValidation, desc.Path(), "new plan", "output path is required", nil)
	}

	options := planOptions{verbosity: DefaultVerbosity}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	resolved := output
	if !options.overwrite {
		unique, err := fileutil.UniquePath(output)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, output, "new plan", "resolve output path", err)
		}
		resolved = unique
	}
	if samePath(resolved, desc.Path()) {
		return nil, services.Wrap(services.ErrValidation, resolved, "new plan", "output would replace the input file", nil)
	}

	return &Plan{
		desc:      desc,
		output:    resolved,
		overwrite: options.overwrite,
		verbosity: options.verbosity,
		logger:    logging.NewComponentLogger(options.logger, "convert"),
	}, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Descriptor returns the source media.
func (p *Plan) Descriptor() *media.Descriptor { return p.desc }

// Output returns the resolved output path.
func (p *Plan) Output() string { return p.output }

// Warnings returns the non-fatal conditions recorded while building the plan.
func (p *Plan) Warnings() []string { return slices.Clone(p.warnings) }

// Compiled reports whether the plan has been turned into arguments.
func (p *Plan) Compiled() bool { return p.compiled }

// Empty reports whether no intent has been added.
func (p *Plan) Empty() bool {
	return len(p.video)+len(p.audio)+len(p.subtitle)+len(p.attachment)+len(p.other) == 0
}

// AddVideoIntent validates intent and appends it. A rejected intent leaves
// the plan unchanged.
func (p *Plan) AddVideoIntent(intent VideoIntent) error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	index, err := p.resolveStream(intent.Stream, media.TypeVideo, p.desc.VideoStreams())
	if err != nil {
		return err
	}

	encoder := strings.ToLower(strings.TrimSpace(intent.Encoder))
	stream := videoStream{index: index, encoder: encoder, width: -1, height: -1}
	var warning string

	switch encoder {
	case EncoderCopy:
		stream.rateControl = EncoderCopy
		p.video = append(p.video, stream)
		return nil
	case EncoderX264, EncoderX265:
		rateControl, rate, err := x26xRate(index, intent.RateControl, intent.Rate)
		if err != nil {
			return err
		}
		stream.rateControl, stream.rate = rateControl, rate
		preset := strings.ToLower(strings.TrimSpace(intent.Preset))
		switch {
		case preset == "":
			preset = Presets[len(Presets)-1]
			warning = fmt.Sprintf("stream %d: no preset given, using %s", index, preset)
		case !slices.Contains(Presets, preset):
			return streamError(index, fmt.Sprintf("unsupported preset %q", intent.Preset))
		}
		stream.preset = preset
	case EncoderVP8, EncoderVP9:
		rateControl, rate, err := vpRate(index, intent.RateControl, intent.Rate)
		if err != nil {
			return err
		}
		stream.rateControl, stream.rate = rateControl, rate
	default:
		return streamError(index, fmt.Sprintf("unsupported video encoder %q", intent.Encoder))
	}

	width, err := dimension(index, "width", intent.Width)
	if err != nil {
		return err
	}
	height, err := dimension(index, "height", intent.Height)
	if err != nil {
		return err
	}
	stream.width, stream.height = width, height

	p.video = append(p.video, stream)
	if warning != "" {
		p.warn("video preset defaulted", "preset_defaulted", index, warning)
	}
	return nil
}

// AddAudioIntent validates intent and appends it. Unknown encoders fall back
// to aac and unusable bitrates to DefaultAudioKbps, both with a warning.
func (p *Plan) AddAudioIntent(intent AudioIntent) error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	index, err := p.resolveStream(intent.Stream, media.TypeAudio, p.desc.AudioStreams())
	if err != nil {
		return err
	}

	var warnings []string
	encoder := strings.ToLower(strings.TrimSpace(intent.Encoder))
	switch encoder {
	case EncoderAAC, EncoderOpus, EncoderVorbis, EncoderCopy:
	default:
		warnings = append(warnings, fmt.Sprintf("stream %d: audio encoder %q not supported, using aac", index, intent.Encoder))
		encoder = EncoderAAC
	}

	bitrate := DefaultAudioKbps
	switch rate := intent.BitrateKbps; {
	case math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0:
		if encoder != EncoderCopy {
			warnings = append(warnings, fmt.Sprintf("stream %d: audio bitrate %v not usable, using %dk", index, rate, DefaultAudioKbps))
		}
	default:
		bitrate = int(math.Round(rate))
	}

	channels := strings.ToLower(strings.TrimSpace(intent.Channels))
	if channels == "" {
		channels = LayoutStereo
	}

	p.audio = append(p.audio, audioStream{index: index, encoder: encoder, bitrate: bitrate, channels: channels})
	for _, warning := range warnings {
		p.warn("audio intent adjusted", "audio_intent_defaulted", index, warning)
	}
	return nil
}

// AddSubtitleIntents copies each listed subtitle stream. Either every index
// is accepted or none is.
func (p *Plan) AddSubtitleIntents(indices ...int) error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	for _, index := range indices {
		if err := p.requireType(index, media.TypeSubtitle); err != nil {
			return err
		}
	}
	p.subtitle = append(p.subtitle, indices...)
	return nil
}

// AddAttachmentIntents copies each listed attachment or unrecognized stream.
// Either every index is accepted or none is.
func (p *Plan) AddAttachmentIntents(indices ...int) error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	var attachments, others []int
	for _, index := range indices {
		kind, ok := p.desc.StreamType(index)
		switch {
		case !ok:
			return streamError(index, "stream does not exist")
		case kind == media.TypeAttachment:
			attachments = append(attachments, index)
		case kind == media.TypeVideo, kind == media.TypeAudio, kind == media.TypeSubtitle:
			return streamError(index, fmt.Sprintf("stream is %s, not an attachment", kind))
		default:
			others = append(others, index)
		}
	}
	p.attachment = append(p.attachment, attachments...)
	p.other = append(p.other, others...)
	return nil
}

// CopyAll adds a stream-copy intent for every stream in the source.
func (p *Plan) CopyAll() error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	for _, index := range p.desc.VideoStreams() {
		p.video = append(p.video, videoStream{index: index, encoder: EncoderCopy, rateControl: EncoderCopy, width: -1, height: -1})
	}
	for _, index := range p.desc.AudioStreams() {
		p.audio = append(p.audio, audioStream{index: index, encoder: EncoderCopy, bitrate: DefaultAudioKbps, channels: LayoutStereo})
	}
	p.subtitle = append(p.subtitle, p.desc.SubtitleStreams()...)
	p.attachment = append(p.attachment, p.desc.AttachmentStreams()...)
	p.other = append(p.other, p.desc.UnrecognizedStreams()...)
	return nil
}

func (p *Plan) checkMutable() error {
	if p.compiled {
		return services.Wrap(services.ErrValidation, p.desc.Path(), "plan", "plan already compiled", nil)
	}
	return nil
}

func (p *Plan) resolveStream(index int, kind string, candidates []int) (int, error) {
	if index == DefaultStream {
		if len(candidates) == 0 {
			return 0, services.Wrap(services.ErrValidation, p.desc.Path(), "plan", fmt.Sprintf("no %s streams", kind), nil)
		}
		return candidates[0], nil
	}
	if err := p.requireType(index, kind); err != nil {
		return 0, err
	}
	return index, nil
}

func (p *Plan) requireType(index int, kind string) error {
	actual, ok := p.desc.StreamType(index)
	if !ok {
		return services.Wrap(services.ErrValidation, p.desc.Path(), fmt.Sprintf("stream %d", index), "stream does not exist", nil)
	}
	if actual != kind {
		return services.Wrap(services.ErrValidation, p.desc.Path(), fmt.Sprintf("stream %d", index),
			fmt.Sprintf("stream is %s, not %s", actual, kind), nil)
	}
	return nil
}

func (p *Plan) warn(msg, eventType string, index int, detail string) {
	p.warnings = append(p.warnings, detail)
	logging.WarnWithContext(p.logger, msg, eventType,
		logging.Path(p.desc.Path()),
		logging.Stream(index),
		logging.String("detail", detail),
		logging.String(logging.FieldImpact, "encoding continues with the default"),
	)
}

func x26xRate(index int, method string, rate float64) (string, int, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	switch method {
	case RateCBR:
		kbps, err := bitrate(index, rate)
		return method, kbps, err
	case RateCRF:
		crf, err := qualityFactor(index, rate, maxCRFX26x)
		return method, crf, err
	default:
		return "", 0, streamError(index, fmt.Sprintf("rate control %q not supported for x264/x265 (use cbr or crf)", method))
	}
}

func vpRate(index int, method string, rate float64) (string, int, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	switch method {
	case RateCBR, RateVBR:
		kbps, err := bitrate(index, rate)
		return method, kbps, err
	case RateCRF:
		crf, err := qualityFactor(index, rate, maxCRFVP)
		return method, crf, err
	default:
		return "", 0, streamError(index, fmt.Sprintf("rate control %q not supported for vp8/vp9 (use cbr, vbr or crf)", method))
	}
}

func bitrate(index int, kbps float64) (int, error) {
	if math.IsNaN(kbps) || math.IsInf(kbps, 0) || math.Round(kbps) <= 0 {
		return 0, streamError(index, fmt.Sprintf("bitrate must be a positive kbit/s value, got %v", kbps))
	}
	return int(math.Round(kbps)), nil
}

func qualityFactor(index int, value float64, maxValue int) (int, error) {
	if math.IsNaN(value) || value < 0 || value > float64(maxValue) {
		return 0, streamError(index, fmt.Sprintf("crf must be between 0 and %d, got %v", maxValue, value))
	}
	return int(math.Round(value)), nil
}

func dimension(index int, name string, value int) (int, error) {
	switch {
	case value == 0 || value == -1:
		return -1, nil
	case value < 0:
		return 0, streamError(index, fmt.Sprintf("%s must be positive or -1, got %d", name, value))
	default:
		return value, nil
	}
}

func streamError(index int, message string) error {
	return services.Wrap(services.ErrValidation, fmt.Sprintf("stream %d", index), "plan", message, nil)
}
