package convert_test

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"ffkit/internal/convert"
	"ffkit/internal/services"
)

func assertArgs(t *testing.T, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected args\n got: %q\nwant: %q", got, want)
	}
}

func TestCompileArgumentOrder(t *testing.T) {
	plan, output := newPlan(t)
	if err := plan.AddSubtitleIntents(2); err != nil {
		t.Fatal(err)
	}
	if err := plan.AddAudioIntent(convert.AudioIntent{Stream: 1, Encoder: "opus", BitrateKbps: 96, Channels: "stereo"}); err != nil {
		t.Fatal(err)
	}
	if err := plan.AddVideoIntent(convert.VideoIntent{Stream: convert.DefaultStream, Encoder: "x264", RateControl: "crf", Rate: 23, Preset: "slow", Height: 480, Width: -1}); err != nil {
		t.Fatal(err)
	}

	args, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertArgs(t, args, []string{
		"-v", "24",
		"-i", sourcePath,
		"-map", "0:0", "-map", "0:1", "-map", "0:2",
		"-c:v", "libx264", "-crf", "23", "-vf", "scale=-1:480", "-preset", "slow",
		"-c:a:0", "libopus", "-b:a:0", "96k", "-vbr", "constrained",
		"-c:s", "copy",
		output,
	})

	again, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	assertArgs(t, again, args)
}

func TestCompileVideoRateControl(t *testing.T) {
	cases := []struct {
		name   string
		intent convert.VideoIntent
		want   []string
	}{
		{
			name:   "x265 cbr",
			intent: convert.VideoIntent{Stream: 0, Encoder: "x265", RateControl: "cbr", Rate: 2499.6, Preset: "medium"},
			want:   []string{"-c:v", "libx265", "-b:v", "2500k", "-vf", "scale=1920:1080", "-preset", "medium"},
		},
		{
			name:   "vp9 cbr",
			intent: convert.VideoIntent{Stream: 0, Encoder: "vp9", RateControl: "cbr", Rate: 1000},
			want:   []string{"-c:v", "libvpx-vp9", "-minrate", "1000k", "-maxrate", "1000k", "-b:v", "1000k", "-vf", "scale=1920:1080"},
		},
		{
			name:   "vp8 cbr",
			intent: convert.VideoIntent{Stream: 0, Encoder: "vp8", RateControl: "cbr", Rate: 800, Width: 1280, Height: 720},
			want:   []string{"-c:v", "libvpx", "-minrate", "800k", "-maxrate", "800k", "-b:v", "800k", "-vf", "scale=1280:720"},
		},
		{
			name:   "vp9 crf",
			intent: convert.VideoIntent{Stream: 0, Encoder: "vp9", RateControl: "crf", Rate: 31},
			want:   []string{"-c:v", "libvpx-vp9", "-crf", "31", "-b:v", "0", "-vf", "scale=1920:1080"},
		},
		{
			name:   "vp8 crf",
			intent: convert.VideoIntent{Stream: 0, Encoder: "vp8", RateControl: "crf", Rate: 10},
			want:   []string{"-c:v", "libvpx", "-crf", "10", "-vf", "scale=1920:1080"},
		},
		{
			name:   "vp9 vbr",
			intent: convert.VideoIntent{Stream: 0, Encoder: "vp9", RateControl: "vbr", Rate: 1500},
			want:   []string{"-c:v", "libvpx-vp9", "-b:v", "1500k", "-vf", "scale=1920:1080"},
		},
		{
			name:   "copy ignores rate and scale",
			intent: convert.VideoIntent{Stream: 0, Encoder: "copy", RateControl: "crf", Rate: 99, Width: 640, Height: 480, Preset: "slow"},
			want:   []string{"-c:v", "copy"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, output := newPlan(t)
			if err := plan.AddVideoIntent(tc.intent); err != nil {
				t.Fatalf("AddVideoIntent: %v", err)
			}
			args, err := convert.Compile(plan, nil)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			want := append([]string{"-v", "24", "-i", sourcePath, "-map", "0:0"}, tc.want...)
			assertArgs(t, args, append(want, output))
		})
	}
}

func TestCompileOpusMono(t *testing.T) {
	plan, output := newPlan(t, convert.WithVerbosity(16))
	if err := plan.AddAudioIntent(convert.AudioIntent{Stream: 4, Encoder: "opus", BitrateKbps: 48, Channels: "mono"}); err != nil {
		t.Fatal(err)
	}
	if err := plan.AddAudioIntent(convert.AudioIntent{Stream: 1, Encoder: "opus", BitrateKbps: 128}); err != nil {
		t.Fatal(err)
	}
	args, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertArgs(t, args, []string{
		"-v", "16", "-i", sourcePath,
		"-map", "0:4", "-map", "0:1",
		"-c:a:0", "libopus", "-af", "aformat=channel_layouts=mono", "-b:a:0", "48k", "-vbr", "constrained",
		"-c:a:1", "libopus", "-b:a:1", "128k",
		output,
	})
}

func TestCompileFastSeekThreshold(t *testing.T) {
	cases := []struct {
		name string
		clip convert.Window
		seek []string
	}{
		{
			name: "below threshold",
			clip: convert.Window{Start: "00:01:00", End: "00:02:00"},
			seek: []string{"-ss", "00:00:00.000", "-i", sourcePath, "-ss", "00:01:00.000", "-to", "00:02:00.000"},
		},
		{
			name: "above threshold",
			clip: convert.Window{Start: "00:05:00", End: "00:06:00.5"},
			seek: []string{"-ss", "00:03:30.000", "-i", sourcePath, "-ss", "00:01:30.000", "-to", "00:02:30.500"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, output := newPlan(t)
			if err := plan.CopyAll(); err != nil {
				t.Fatal(err)
			}
			args, err := convert.Compile(plan, &tc.clip)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			want := append([]string{"-v", "24"}, tc.seek...)
			want = append(want,
				"-map", "0:0", "-map", "0:1", "-map", "0:4", "-map", "0:2", "-map", "0:3", "-map", "0:5",
				"-c:v", "copy", "-c:a:0", "copy", "-c:a:1", "copy", "-c:s", "copy", "-c:t", "copy", "-c:d", "copy",
				"-avoid_negative_ts", "1", output)
			assertArgs(t, args, want)
		})
	}
}

func TestCompileClipWithoutCopyOmitsTimestampFix(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.AddVideoIntent(convert.VideoIntent{Stream: 0, Encoder: "x264", RateControl: "crf", Rate: 20, Preset: "fast"}); err != nil {
		t.Fatal(err)
	}
	args, err := convert.Compile(plan, &convert.Window{Start: "00:00:10", End: "00:00:20"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if slices.Contains(args, "-avoid_negative_ts") {
		t.Fatalf("unexpected timestamp flag in %v", args)
	}
}

func TestCompileRejectsBadWindow(t *testing.T) {
	plan, _ := newPlan(t)
	if err := plan.CopyAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := convert.Compile(plan, &convert.Window{Start: "00:02:00", End: "00:01:00"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := convert.Compile(plan, &convert.Window{Start: "2 minutes", End: "00:01:00"}); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if plan.Compiled() {
		t.Fatal("failed compile must not mark the plan compiled")
	}
}

func TestCompileEmptyPlan(t *testing.T) {
	plan, _ := newPlan(t)
	_, err := convert.Compile(plan, nil)
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), sourcePath) {
		t.Fatalf("expected ErrValidation naming the file, got %v", err)
	}
}

func TestCompileOverwriteForcesReplace(t *testing.T) {
	plan, output := newPlan(t, convert.WithOverwrite(true))
	if err := plan.CopyAll(); err != nil {
		t.Fatal(err)
	}
	args, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !slices.Equal(args[:4], []string{"-v", "24", "-y", "-i"}) || args[len(args)-1] != output {
		t.Fatalf("expected -y after verbosity, got %q", args)
	}

	plain, _ := newPlan(t)
	if err := plain.CopyAll(); err != nil {
		t.Fatal(err)
	}
	args, err = convert.Compile(plain, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if slices.Contains(args, "-y") {
		t.Fatalf("unexpected -y without overwrite: %q", args)
	}
}

const twoVideoReport = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "24/1"},
    {"index": 1, "codec_name": "mjpeg", "codec_type": "video", "width": 640, "height": 360, "r_frame_rate": "1/1"},
    {"index": 2, "codec_name": "aac", "codec_type": "audio", "channels": 2}
  ],
  "format": {"filename": "/media/source.mkv", "duration": "60", "size": "1000000"}
}`

func TestCompileScopesFlagsPerVideoStream(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.mkv")
	plan, err := convert.NewPlan(newDescriptor(t, twoVideoReport), output)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if err := plan.AddVideoIntent(convert.VideoIntent{Stream: 0, Encoder: "x265", RateControl: "crf", Rate: 22, Preset: "medium", Width: -1, Height: -1}); err != nil {
		t.Fatal(err)
	}
	if err := plan.AddVideoIntent(convert.VideoIntent{Stream: 1, Encoder: "copy"}); err != nil {
		t.Fatal(err)
	}

	args, err := convert.Compile(plan, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertArgs(t, args, []string{
		"-v", "24",
		"-i", sourcePath,
		"-map", "0:0", "-map", "0:1",
		"-c:v:0", "libx265", "-crf:v:0", "22", "-filter:v:0", "scale=1920:1080", "-preset:v:0", "medium",
		"-c:v:1", "copy",
		output,
	})
}
