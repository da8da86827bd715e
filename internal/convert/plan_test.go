package convert_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"ffkit/internal/convert"
	"ffkit/internal/media"
	"ffkit/internal/media/ffprobe"
	"ffkit/internal/services"
)

const sourceReport = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "24/1", "bit_rate": "5000000"},
    {"index": 1, "codec_name": "ac3", "codec_type": "audio", "channels": 6, "bit_rate": "448000", "tags": {"language": "eng"}},
    {"index": 2, "codec_name": "subrip", "codec_type": "subtitle"},
    {"index": 3, "codec_name": "ttf", "codec_type": "attachment"},
    {"index": 4, "codec_name": "aac", "codec_type": "audio", "channels": 2, "bit_rate": "128000", "tags": {"language": "ger"}},
    {"index": 5, "codec_name": "bin_data", "codec_type": "data"}
  ],
  "format": {"filename": "/media/source.mkv", "duration": "3600", "size": "2000000000"}
}`

const sourcePath = "/media/source.mkv"

func newDescriptor(t *testing.T, report string) *media.Descriptor {
	t.Helper()
	result, err := ffprobe.Parse([]byte(report))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	desc, err := media.FromResult(sourcePath, 0, result)
	if err != nil {
		t.Fatalf("FromResult: %v", err)
	}
	return desc
}

func newPlan(t *testing.T, opts ...convert.Option) (*convert.Plan, string) {
	t.Helper()
	output := filepath.Join(t.TempDir(), "out.mkv")
	plan, err := convert.NewPlan(newDescriptor(t, sourceReport), output, opts...)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	return plan, output
}

func TestNewPlanRejectsInvalidDescriptor(t *testing.T) {
	result, err := ffprobe.Parse([]byte(`{"streams": [{"index": 0, "codec_type": "video"}, {"index": 0, "codec_type": "audio"}], "format": {}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	desc, _ := media.FromResult(sourcePath, 0, result)
	if _, err := convert.NewPlan(desc, filepath.Join(t.TempDir(), "x.mkv")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := convert.NewPlan(nil, "x.mkv"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for nil descriptor, got %v", err)
	}
}

func TestNewPlanAvoidsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.mkv")
	if err := os.WriteFile(output, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	desc := newDescriptor(t, sourceReport)

	plan, err := convert.NewPlan(desc, output)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if plan.Output() != filepath.Join(dir, "out_1.mkv") {
		t.Fatalf("expected renamed output, got %s", plan.Output())
	}

	plan, err = convert.NewPlan(desc, output, convert.WithOverwrite(true))
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if plan.Output() != output {
		t.Fatalf("expected overwrite to keep path, got %s", plan.Output())
	}
}

func TestNewPlanRefusesToReplaceInput(t *testing.T) {
	desc := newDescriptor(t, sourceReport)
	if _, err := convert.NewPlan(desc, sourcePath, convert.WithOverwrite(true)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation when output is the input, got %v", err)
	}
	if _, err := convert.NewPlan(desc, "/media/../media/source.mkv", convert.WithOverwrite(true)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for an equivalent path, got %v", err)
	}
}

func TestAddVideoIntentCRFBounds(t *testing.T) {
	plan, _ := newPlan(t)
	err := plan.AddVideoIntent(convert.VideoIntent{Stream: convert.DefaultStream, Encoder: "x264", RateControl: "crf", Rate: 52, Preset: "fast"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for crf 52, got %v", err)
	}
	if !plan.Empty() {
		t.Fatal("rejected intent must leave the plan unchanged")
	}
	if err := plan.AddVideoIntent(convert.VideoIntent{Stream: convert.DefaultStream, Encoder: "x264", RateControl: "crf", Rate: 51, Preset: "fast"}); err != nil {
		t.Fatalf("crf 51 should be accepted: %v", err)
	}

	vp, _ := newPlan(t)
	if err := vp.AddVideoIntent(convert.VideoIntent{Stream: 0, Encoder: "vp9", RateControl: "crf", Rate: 63}); err != nil {
		t.Fatalf("vp9 crf 63 should be accepted: %v", err)
	}
	if err := vp.AddVideoIntent(convert.VideoIntent{Stream: 0, Encoder: "vp8", RateControl: "crf", Rate: 64}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for vp8 crf 64, got %v", err)
	}
}

func TestAddVideoIntentValidation(t *testing.T) {
	cases := []struct {
		name   string
		intent convert.VideoIntent
	}{
		{"non-video stream", convert.VideoIntent{Stream: 1, Encoder: "x264", RateControl: "crf", Rate: 20}},
		{"missing stream", convert.VideoIntent{Stream: 42, Encoder: "x264", RateControl: "crf", Rate: 20}},
		{"unknown encoder", convert.VideoIntent{Stream: 0, Encoder: "av1", RateControl: "crf", Rate: 20}},
		{"x26x vbr", convert.VideoIntent{Stream: 0, Encoder: "x265", RateControl: "vbr", Rate: 2000}},
		{"cbr without bitrate", convert.VideoIntent{Stream: 0, Encoder: "x264", RateControl: "cbr", Rate: 0}},
		{"negative crf", convert.VideoIntent{Stream: 0, Encoder: "x264", RateControl: "crf", Rate: -1}},
		{"unknown preset", convert.VideoIntent{Stream: 0, Encoder: "x264", RateControl: "crf", Rate: 20, Preset: "warp"}},
		{"bad width", convert.VideoIntent{Stream: 0, Encoder: "vp9", RateControl: "vbr", Rate: 900, Width: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, _ := newPlan(t)
			if err := plan.AddVideoIntent(tc.intent); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !plan.Empty() {
				t.Fatal("plan should stay empty")
			}
		})
	}
}

func TestAddVideoIntentNoVideoStreams(t *testing.T) {
	desc := newDescriptor(t, `{"streams": [{"index": 0, "codec_type": "audio", "codec_name": "flac"}], "format": {}}`)
	plan, err := convert.NewPlan(desc, filepath.Join(t.TempDir(), "a.mka"))
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	err = plan.AddVideoIntent(convert.VideoIntent{Stream: convert.DefaultStream, Encoder: "copy"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMissingPresetDefaultsWithWarning(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.AddVideoIntent(convert.VideoIntent{Stream: 0, Encoder: "x265", RateControl: "crf", Rate: 22}); err != nil {
		t.Fatalf("AddVideoIntent: %v", err)
	}
	warnings := plan.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "ultrafast") || !strings.Contains(warnings[0], "stream 0") {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	args, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !slices.Contains(args, "ultrafast") {
		t.Fatalf("expected ultrafast preset in %v", args)
	}
}

func TestAddAudioIntentDefaults(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.AddAudioIntent(convert.AudioIntent{Stream: 1, Encoder: "mp3", BitrateKbps: 191.6}); err != nil {
		t.Fatalf("AddAudioIntent: %v", err)
	}
	if err := plan.AddAudioIntent(convert.AudioIntent{Stream: 4, Encoder: "vorbis"}); err != nil {
		t.Fatalf("AddAudioIntent: %v", err)
	}
	if got := len(plan.Warnings()); got != 2 {
		t.Fatalf("expected encoder and bitrate warnings, got %v", plan.Warnings())
	}
	args, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:a:0 aac -b:a:0 192k") || !strings.Contains(joined, "-c:a:1 libvorbis -b:a:1 128k") {
		t.Fatalf("unexpected audio args %q", joined)
	}
}

func TestAddAudioIntentRejectsNonAudio(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.AddAudioIntent(convert.AudioIntent{Stream: 0, Encoder: "aac", BitrateKbps: 128}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !plan.Empty() {
		t.Fatal("audio intent must be dropped")
	}
}

func TestAddSubtitleIntentsAllOrNothing(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.AddSubtitleIntents(2, 1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !plan.Empty() {
		t.Fatal("no subtitle intent should be appended")
	}
	if err := plan.AddSubtitleIntents(2); err != nil {
		t.Fatalf("AddSubtitleIntents: %v", err)
	}
}

func TestAddAttachmentIntents(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.AddAttachmentIntents(3, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for video stream, got %v", err)
	}
	if err := plan.AddAttachmentIntents(5, 3); err != nil {
		t.Fatalf("AddAttachmentIntents: %v", err)
	}
	args, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-map 0:3 -map 0:5") {
		t.Fatalf("attachments must map before other streams: %q", joined)
	}
}

func TestCompiledPlanIsImmutable(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.CopyAll(); err != nil {
		t.Fatalf("CopyAll: %v", err)
	}
	if _, err := convert.Compile(plan, nil); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !plan.Compiled() {
		t.Fatal("expected compiled flag")
	}
	if err := plan.AddSubtitleIntents(2); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation after compile, got %v", err)
	}
}
