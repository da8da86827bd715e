package encoding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"ffkit/internal/convert"
	"ffkit/internal/media"
	"ffkit/internal/media/ffprobe"
	"ffkit/internal/services"
)

const stubFFmpeg = `#!/bin/sh
printf '%s\n' "$@" > "$STUB_ARGS_LOG"
prev=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then input="$arg"; fi
  prev="$arg"
  last="$arg"
done
if [ -n "$STUB_MANIFEST_COPY" ] && [ -f "$input" ]; then cp "$input" "$STUB_MANIFEST_COPY"; fi
printf 'frame=  120 fps=48 q=28.0 size=     256kB time=00:00:05.00 bitrate= 419.4kbits/s speed=2.5x\r' >&2
if [ -n "$STUB_EXIT" ]; then
  echo "Invalid data found when processing input" >&2
  exit "$STUB_EXIT"
fi
: > "$last"
`

type stub struct {
	binary   string
	argsLog  string
	manifest string
}

func installStub(t *testing.T) stub {
	t.Helper()
	dir := t.TempDir()
	s := stub{
		binary:   filepath.Join(dir, "ffmpeg"),
		argsLog:  filepath.Join(dir, "args.log"),
		manifest: filepath.Join(dir, "manifest.copy"),
	}
	if err := os.WriteFile(s.binary, []byte(stubFFmpeg), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("STUB_ARGS_LOG", s.argsLog)
	t.Setenv("STUB_MANIFEST_COPY", s.manifest)
	t.Setenv("STUB_EXIT", "")
	return s
}

func (s stub) args(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(s.argsLog)
	if err != nil {
		t.Fatalf("read args log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRunCreatesOutputDirectoryAndReportsProgress(t *testing.T) {
	s := installStub(t)
	output := filepath.Join(t.TempDir(), "nested", "deeper", "out.mkv")

	var updates []Progress
	runner := &Runner{Binary: s.binary, Duration: 10, Progress: func(p Progress) { updates = append(updates, p) }}
	if _, err := runner.Run(context.Background(), []string{"-i", "input.mkv", output}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output to exist: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected one progress update, got %d", len(updates))
	}
	update := updates[0]
	if update.Position != 5 || update.Percent != 50 || update.Speed != 2.5 || update.SizeKB != 256 {
		t.Fatalf("unexpected progress %+v", update)
	}
	if update.ETA != 2*time.Second {
		t.Fatalf("ETA = %v, want 2s", update.ETA)
	}
}

func TestRunFailureCarriesExitStatusAndStderr(t *testing.T) {
	s := installStub(t)
	t.Setenv("STUB_EXIT", "3")
	output := filepath.Join(t.TempDir(), "out.mkv")

	_, err := NewRunner(s.binary, nil).Run(context.Background(), []string{"-i", "broken.mkv", output})
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"exit status 3", "Invalid data found", output} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in %q", fragment, msg)
		}
	}
	if strings.Contains(msg, "frame=") {
		t.Fatalf("progress lines should not be part of the error tail: %q", msg)
	}
}

func TestRunRejectsEmptyArgs(t *testing.T) {
	if _, err := NewRunner("", nil).Run(context.Background(), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestConvertRunsCompiledPlan(t *testing.T) {
	s := installStub(t)
	result, err := ffprobe.Parse([]byte(`{
	  "streams": [
	    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 640, "height": 360},
	    {"index": 1, "codec_name": "aac", "codec_type": "audio"}
	  ],
	  "format": {"duration": "60", "size": "1000000"}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	desc, err := media.FromResult("/media/in.mp4", 0, result)
	if err != nil {
		t.Fatalf("FromResult: %v", err)
	}
	plan, err := convert.NewPlan(desc, filepath.Join(t.TempDir(), "out.mkv"))
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if err := plan.CopyAll(); err != nil {
		t.Fatalf("CopyAll: %v", err)
	}

	var last Progress
	runner := &Runner{Binary: s.binary, Progress: func(p Progress) { last = p }}
	res, err := runner.Convert(context.Background(), plan)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !slices.Equal(s.args(t), res.Args) {
		t.Fatalf("ffmpeg received %q, compiled %q", s.args(t), res.Args)
	}
	if res.Output != plan.Output() {
		t.Fatalf("unexpected output %s", res.Output)
	}
	if last.Percent < 8.3 || last.Percent > 8.4 {
		t.Fatalf("expected percent from descriptor duration, got %v", last.Percent)
	}
	if runner.Duration != 0 {
		t.Fatal("Convert must not mutate the runner")
	}
}

func TestCaptureStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\ntrap 'exit 0' INT TERM\nsleep 30 >/dev/null 2>&1 &\nwait\n"
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	res, err := NewRunner(binary, nil).Capture(ctx, "https://example.com/live.m3u8", filepath.Join(dir, "show.mp4"), 24)
	if err != nil {
		t.Fatalf("cancelled capture should not fail: %v", err)
	}
	if res.Output != filepath.Join(dir, "show.ts") {
		t.Fatalf("unexpected capture output %s", res.Output)
	}
}

func TestCaptureArgs(t *testing.T) {
	got := CaptureArgs("http://host/stream.m3u8", "/tmp/out.ts", 24)
	want := []string{"-v", "24", "-analyzeduration", "5000000", "-probesize", "5000000",
		"-i", "http://host/stream.m3u8", "-c", "copy", "/tmp/out.ts"}
	if !slices.Equal(got, want) {
		t.Fatalf("CaptureArgs = %q", got)
	}
}

func TestCapturePath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "show.ts"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := CapturePath(filepath.Join(dir, "show.mkv"))
	if err != nil {
		t.Fatalf("CapturePath: %v", err)
	}
	if got != filepath.Join(dir, "show_1.ts") {
		t.Fatalf("CapturePath = %s", got)
	}
}
