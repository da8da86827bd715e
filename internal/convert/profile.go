package convert

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ffkit/internal/fileutil"
	"ffkit/internal/media/audio"
	"ffkit/internal/services"
)

// Profile is a named x265 conversion recipe: one video stream at a fixed
// crf, the primary audio stream re-encoded to opus, subtitles copied.
type Profile struct {
	Name      string
	Encoder   string
	CRF       int
	Preset    string
	AudioKbps int
	Channels  string
}

// Profiles are the built-in conversion recipes.
var Profiles = map[string]Profile{
	"low":    {Name: "low", Encoder: EncoderX265, CRF: 25, Preset: "veryfast", AudioKbps: 48, Channels: LayoutMono},
	"medium": {Name: "medium", Encoder: EncoderX265, CRF: 23, Preset: "veryfast", AudioKbps: 96, Channels: LayoutStereo},
	"high":   {Name: "high", Encoder: EncoderX265, CRF: 20, Preset: "veryfast", AudioKbps: 128, Channels: LayoutStereo},
}

// LookupProfile returns the named profile.
func LookupProfile(name string) (Profile, error) {
	profile, ok := Profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(Profiles))
		for key := range Profiles {
			names = append(names, key)
		}
		sort.Strings(names)
		return Profile{}, services.Wrap(services.ErrValidation, fmt.Sprintf("profile %q", name), "lookup",
			"expected one of "+strings.Join(names, ", "), nil)
	}
	return profile, nil
}

// WithQuality returns a copy of p using q's video and audio settings.
func (p Profile) WithQuality(q Quality) Profile {
	p.CRF = q.CRF
	p.AudioKbps = q.AudioKbps
	p.Channels = q.Channels
	return p
}

// Apply adds the profile's intents to plan. audioLanguage steers which audio
// stream is kept. Files without video keep their audio; files with neither
// are rejected.
func (p Profile) Apply(plan *Plan, audioLanguage string) error {
	desc := plan.Descriptor()
	hasVideo := len(desc.VideoStreams()) > 0
	selection := audio.Select(desc.Streams(), audioLanguage)
	if !hasVideo && !selection.Found() {
		return services.Wrap(services.ErrValidation, desc.Path(), "apply profile", "no audio or video streams", nil)
	}
	if hasVideo {
		if err := plan.AddVideoIntent(VideoIntent{
			Stream:      DefaultStream,
			Encoder:     p.Encoder,
			RateControl: RateCRF,
			Rate:        float64(p.CRF),
			Preset:      p.Preset,
		}); err != nil {
			return err
		}
	}
	if selection.Found() {
		if err := plan.AddAudioIntent(AudioIntent{
			Stream:      selection.PrimaryIndex,
			Encoder:     EncoderOpus,
			BitrateKbps: float64(p.AudioKbps),
			Channels:    p.Channels,
		}); err != nil {
			return err
		}
	}
	return plan.AddSubtitleIntents(desc.SubtitleStreams()...)
}

// Quality is the video crf and audio settings chosen for one file.
type Quality struct {
	CRF       int
	AudioKbps int
	Channels  string
}

// QualityTable maps bits-per-pixel intervals to qualities. Thresholds[0] is 0
// and each interval (Thresholds[i], Thresholds[i+1]] uses Levels[i].
type QualityTable struct {
	Thresholds []float64
	Levels     []Quality
	Default    Quality
}

// DefaultQualityTable favors quality on low-bitrate sources.
var DefaultQualityTable = QualityTable{
	Thresholds: []float64{0, 0.08, 0.11},
	Levels: []Quality{
		{CRF: 23, AudioKbps: 96, Channels: LayoutStereo},
		{CRF: 21, AudioKbps: 96, Channels: LayoutStereo},
		{CRF: 20, AudioKbps: 128, Channels: LayoutStereo},
	},
	Default: Quality{CRF: 23, AudioKbps: 96, Channels: LayoutStereo},
}

// Validate checks the table shape.
func (t QualityTable) Validate() error {
	if len(t.Thresholds) == 0 || len(t.Thresholds) != len(t.Levels) {
		return services.Wrap(services.ErrValidation, "quality table", "validate", "thresholds and levels must have equal, non-zero length", nil)
	}
	if t.Thresholds[0] != 0 {
		return services.Wrap(services.ErrValidation, "quality table", "validate", "first threshold must be 0", nil)
	}
	for i := 1; i < len(t.Thresholds); i++ {
		if t.Thresholds[i] <= t.Thresholds[i-1] {
			return services.Wrap(services.ErrValidation, "quality table", "validate", "thresholds must increase", nil)
		}
	}
	return nil
}

// DecideQuality picks the level of the highest threshold bpp exceeds. A
// non-positive bpp (unknown) yields the table default.
func DecideQuality(table QualityTable, bpp float64) Quality {
	quality := table.Default
	if bpp <= 0 || math.IsNaN(bpp) {
		return quality
	}
	for i, threshold := range table.Thresholds {
		if i < len(table.Levels) && bpp > threshold {
			quality = table.Levels[i]
		}
	}
	return quality
}

// EstimateVideoBitrate returns the video bitrate in kbit/s that fills
// targetMB over durationSeconds next to audioKbps and otherKbps. Source
// bitrates reported as inferred make the estimate correspondingly rough.
func EstimateVideoBitrate(targetMB, durationSeconds, audioKbps, otherKbps float64) (float64, error) {
	if durationSeconds <= 0 || math.IsNaN(durationSeconds) {
		return 0, services.Wrap(services.ErrValidation, "bitrate estimate", "", "duration must be positive", nil)
	}
	if targetMB <= 0 {
		return 0, services.Wrap(services.ErrValidation, "bitrate estimate", "", "target size must be positive", nil)
	}
	rate := fileutil.MBToKbit(targetMB)/durationSeconds - (audioKbps + otherKbps)
	if rate <= 0 {
		return 0, services.Wrap(services.ErrValidation, "bitrate estimate", "",
			fmt.Sprintf("target %.1f MB leaves no room for video over %.0fs", targetMB, durationSeconds), nil)
	}
	return rate, nil
}
