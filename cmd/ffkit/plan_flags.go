package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ffkit/internal/batch"
	"ffkit/internal/config"
	"ffkit/internal/convert"
	"ffkit/internal/fileutil"
	"ffkit/internal/logging"
	"ffkit/internal/media"
	"ffkit/internal/timecode"
)

// planFlags are the encoding options shared by args, convert and clip.
// Without --copy or --video-encoder the named profile drives the plan.
type planFlags struct {
	output      string
	overwrite   bool
	profile     string
	autoQuality bool
	copyAll     bool

	videoEncoder string
	rateControl  string
	rate         float64
	targetMB     float64
	preset       string
	width        int
	height       int

	audioStream  int
	audioEncoder string
	audioKbps    float64
	channels     string
	subtitles    bool

	start string
	end   string
}

func (f *planFlags) register(cmd *cobra.Command, withWindow bool) {
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "Output file (defaults next to the input)")
	flags.BoolVar(&f.overwrite, "overwrite", false, "Replace an existing output instead of picking a free name")
	flags.StringVarP(&f.profile, "profile", "p", "", "Conversion profile: low, medium or high")
	flags.BoolVar(&f.autoQuality, "auto-quality", false, "Pick crf and audio settings from the source bits-per-pixel")
	flags.BoolVar(&f.copyAll, "copy", false, "Copy every stream without re-encoding")

	flags.StringVar(&f.videoEncoder, "video-encoder", "", "Video encoder: x264, x265, vp8, vp9 or copy")
	flags.StringVar(&f.rateControl, "rate-control", convert.RateCRF, "Rate control: crf, cbr or vbr")
	flags.Float64Var(&f.rate, "rate", 23, "crf value, or kbit/s for cbr and vbr")
	flags.Float64Var(&f.targetMB, "target-size", 0, "Target output size in MB; sets cbr with an estimated video bitrate")
	flags.StringVar(&f.preset, "preset", "", "x264/x265 preset (defaults to encoding.default_preset)")
	flags.IntVar(&f.width, "width", -1, "Scale width; -1 keeps the aspect ratio")
	flags.IntVar(&f.height, "height", -1, "Scale height; -1 keeps the aspect ratio")

	flags.IntVar(&f.audioStream, "audio-stream", convert.DefaultStream, "Source audio stream index")
	flags.StringVar(&f.audioEncoder, "audio-encoder", "", "Audio encoder: aac, opus, vorbis or copy")
	flags.Float64Var(&f.audioKbps, "audio-kbps", convert.DefaultAudioKbps, "Audio bitrate in kbit/s")
	flags.StringVar(&f.channels, "channels", "", "Audio channel layout: mono or stereo")
	flags.BoolVar(&f.subtitles, "subtitles", false, "Copy every subtitle stream")

	if withWindow {
		flags.StringVar(&f.start, "start", "", "Clip start timecode (HH:MM:SS.mmm)")
		flags.StringVar(&f.end, "end", "", "Clip end timecode (HH:MM:SS.mmm)")
	}
}

func (f *planFlags) window() *convert.Window {
	if strings.TrimSpace(f.start) == "" && strings.TrimSpace(f.end) == "" {
		return nil
	}
	return &convert.Window{Start: strings.TrimSpace(f.start), End: strings.TrimSpace(f.end)}
}

// defaultOutput derives an output path from the input when -o is absent.
func (f *planFlags) defaultOutput(input, suffix string) string {
	if strings.TrimSpace(f.output) != "" {
		return f.output
	}
	stem, ext := fileutil.SplitExt(filepath.Base(input))
	if !f.copyAll {
		ext = ".mkv"
	}
	return filepath.Join(filepath.Dir(input), stem+suffix+ext)
}

// build creates a plan for desc and adds the intents selected by the flags.
func (f *planFlags) build(cfg *config.Config, desc *media.Descriptor, output string, logger *slog.Logger) (*convert.Plan, error) {
	plan, err := convert.NewPlan(desc, output,
		convert.WithOverwrite(f.overwrite || cfg.Encoding.Overwrite),
		convert.WithVerbosity(cfg.Encoding.Verbosity),
		convert.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	switch {
	case f.copyAll:
		err = plan.CopyAll()
	case f.videoEncoder != "" || f.audioEncoder != "":
		err = f.addIntents(cfg, desc, plan)
	default:
		err = f.applyProfile(cfg, desc, plan, logger)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (f *planFlags) addIntents(cfg *config.Config, desc *media.Descriptor, plan *convert.Plan) error {
	if f.videoEncoder != "" {
		preset := f.preset
		if preset == "" {
			preset = cfg.Encoding.DefaultPreset
		}
		rateControl, rate := strings.ToLower(f.rateControl), f.rate
		if f.targetMB > 0 {
			estimated, err := f.sizedBitrate(desc)
			if err != nil {
				return err
			}
			rateControl, rate = convert.RateCBR, estimated
		}
		if err := plan.AddVideoIntent(convert.VideoIntent{
			Stream:      convert.DefaultStream,
			Encoder:     strings.ToLower(f.videoEncoder),
			RateControl: rateControl,
			Rate:        rate,
			Preset:      preset,
			Width:       f.width,
			Height:      f.height,
		}); err != nil {
			return err
		}
	}
	if f.audioEncoder != "" {
		if err := plan.AddAudioIntent(convert.AudioIntent{
			Stream:      f.audioStream,
			Encoder:     strings.ToLower(f.audioEncoder),
			BitrateKbps: f.audioKbps,
			Channels:    f.channels,
		}); err != nil {
			return err
		}
	}
	if f.subtitles {
		return plan.AddSubtitleIntents(desc.SubtitleStreams()...)
	}
	return nil
}

// sizedBitrate estimates the video kbit/s that lands the output near
// --target-size. Audio counts at the requested rate when re-encoded, otherwise
// at the source rate.
func (f *planFlags) sizedBitrate(desc *media.Descriptor) (float64, error) {
	duration := desc.Duration()
	if window := f.window(); window != nil && window.End != "" {
		start := 0.0
		if window.Start != "" {
			parsed, err := timecode.ToSeconds(window.Start)
			if err != nil {
				return 0, err
			}
			start = parsed
		}
		end, err := timecode.ToSeconds(window.End)
		if err != nil {
			return 0, err
		}
		duration = end - start
	}
	audioKbps := float64(desc.AudioBitrate()) / 1000
	if f.audioEncoder != "" && !strings.EqualFold(f.audioEncoder, convert.EncoderCopy) {
		audioKbps = f.audioKbps
	}
	return convert.EstimateVideoBitrate(f.targetMB, duration, audioKbps, 0)
}

func (f *planFlags) applyProfile(cfg *config.Config, desc *media.Descriptor, plan *convert.Plan, logger *slog.Logger) error {
	name := f.profile
	if name == "" {
		name = cfg.Encoding.DefaultProfile
	}
	profile, err := convert.LookupProfile(name)
	if err != nil {
		return err
	}
	if f.autoQuality {
		table, err := batch.QualityTable(cfg)
		if err != nil {
			return err
		}
		quality := convert.DecideQuality(table, desc.BitsPerPixel())
		logger.Info("quality selected",
			logging.Float64("bits_per_pixel", desc.BitsPerPixel()),
			logging.Int("crf", quality.CRF),
			logging.Int("audio_kbps", quality.AudioKbps),
		)
		profile = profile.WithQuality(quality)
	}
	if f.preset != "" {
		profile.Preset = f.preset
	}
	return profile.Apply(plan, cfg.Encoding.AudioLanguage)
}

// describePlan prints the plan warnings ahead of the command output.
func describePlan(cmd *cobra.Command, plan *convert.Plan) {
	for _, warning := range plan.Warnings() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
	}
}
