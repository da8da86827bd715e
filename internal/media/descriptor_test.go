package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ffkit/internal/media"
	"ffkit/internal/media/ffprobe"
	"ffkit/internal/services"
)

const movieReport = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080,
     "coded_width": 1920, "coded_height": 1088, "r_frame_rate": "24000/1001", "bit_rate": "8000000",
     "disposition": {"default": 1, "forced": 0}},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 6, "bit_rate": "384000",
     "tags": {"language": "eng"}},
    {"index": 2, "codec_name": "ac3", "codec_type": "audio", "channels": 2,
     "tags": {"language": "ger", "BPS-eng": "192000"}},
    {"index": 3, "codec_name": "subrip", "codec_type": "subtitle", "tags": {"language": "fre"}},
    {"index": 4, "codec_name": "ttf", "codec_type": "attachment", "tags": {"filename": "font.ttf"}},
    {"index": 5, "codec_name": "bin_data", "codec_type": "data"}
  ],
  "format": {"filename": "movie.mkv", "nb_streams": 6, "duration": "5400.5", "size": "6000000000", "bit_rate": "8888000"}
}`

func mustParse(t *testing.T, report string) ffprobe.Result {
	t.Helper()
	result, err := ffprobe.Parse([]byte(report))
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	return result
}

func mustDescriptor(t *testing.T, report string, fileSize int64) *media.Descriptor {
	t.Helper()
	desc, err := media.FromResult("/media/movie.mkv", fileSize, mustParse(t, report))
	if err != nil {
		t.Fatalf("FromResult returned error: %v", err)
	}
	return desc
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDescriptorClassifiesStreams(t *testing.T) {
	desc := mustDescriptor(t, movieReport, 0)

	cases := map[string]struct {
		got, want []int
	}{
		"video":        {desc.VideoStreams(), []int{0}},
		"audio":        {desc.AudioStreams(), []int{1, 2}},
		"subtitle":     {desc.SubtitleStreams(), []int{3}},
		"attachment":   {desc.AttachmentStreams(), []int{4}},
		"unrecognized": {desc.UnrecognizedStreams(), []int{5}},
	}
	for name, tc := range cases {
		if !equalInts(tc.got, tc.want) {
			t.Fatalf("%s streams = %v, want %v", name, tc.got, tc.want)
		}
	}
	if kind, ok := desc.StreamType(3); !ok || kind != media.TypeSubtitle {
		t.Fatalf("StreamType(3) = %q, %v", kind, ok)
	}
	if _, ok := desc.StreamType(42); ok {
		t.Fatal("expected unknown index to report false")
	}
}

func TestDescriptorDerivedAttributes(t *testing.T) {
	desc := mustDescriptor(t, movieReport, 0)

	if desc.Invalid() {
		t.Fatal("descriptor should be valid")
	}
	if desc.VideoCodec() != "h264" {
		t.Fatalf("VideoCodec = %q", desc.VideoCodec())
	}
	if desc.Width() != 1920 || desc.Height() != 1088 {
		t.Fatalf("expected coded resolution 1920x1088, got %dx%d", desc.Width(), desc.Height())
	}
	if desc.FrameRateFraction() != "24000/1001" {
		t.Fatalf("FrameRateFraction = %q", desc.FrameRateFraction())
	}
	if fps := desc.FrameRate(); fps < 23.97 || fps > 23.98 {
		t.Fatalf("FrameRate = %v", fps)
	}
	if desc.VideoBitrate() != 8000000 {
		t.Fatalf("VideoBitrate = %d", desc.VideoBitrate())
	}
	if desc.AudioBitrate() != 384000+192000 {
		t.Fatalf("AudioBitrate = %d, want BPS tag fallback included", desc.AudioBitrate())
	}
	if desc.BitrateInferred() {
		t.Fatal("bitrates were reported, not inferred")
	}
	if desc.Duration() != 5400.5 {
		t.Fatalf("Duration = %v", desc.Duration())
	}
	if desc.DurationTimecode() != "01:30:00.500" {
		t.Fatalf("DurationTimecode = %q", desc.DurationTimecode())
	}
	if desc.Size() != 6000000000 {
		t.Fatalf("Size = %d", desc.Size())
	}
	if desc.BitRate() != 8888000 {
		t.Fatalf("BitRate = %d", desc.BitRate())
	}
	if bpp := desc.BitsPerPixel(); bpp <= 0 {
		t.Fatalf("BitsPerPixel = %v", bpp)
	}
}

func TestDescriptorInfersMissingBitrates(t *testing.T) {
	report := `{
	  "streams": [
	    {"index": 0, "codec_name": "hevc", "codec_type": "video", "width": 1280, "height": 720},
	    {"index": 1, "codec_name": "opus", "codec_type": "audio"}
	  ],
	  "format": {"duration": "1000", "size": "125000000"}
	}`
	desc := mustDescriptor(t, report, 0)

	if desc.AudioBitrate() != media.DefaultAudioBitrate {
		t.Fatalf("AudioBitrate = %d", desc.AudioBitrate())
	}
	if desc.VideoBitrate() != 872000 {
		t.Fatalf("VideoBitrate = %d, want 872000", desc.VideoBitrate())
	}
	if !desc.BitrateInferred() {
		t.Fatal("expected inferred flag")
	}
}

func TestDescriptorInfersFromKnownVideoBitrate(t *testing.T) {
	report := `{
	  "streams": [
	    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 640, "height": 480, "bit_rate": "900000"},
	    {"index": 1, "codec_name": "mp3", "codec_type": "audio"}
	  ],
	  "format": {"duration": "100"}
	}`
	desc := mustDescriptor(t, report, 12500000)

	if desc.Size() != 12500000 {
		t.Fatalf("expected stat size fallback, got %d", desc.Size())
	}
	if desc.AudioBitrate() != 100000 {
		t.Fatalf("AudioBitrate = %d, want 100000", desc.AudioBitrate())
	}
}

func TestDescriptorSkipsInferenceWithoutDuration(t *testing.T) {
	report := `{
	  "streams": [{"index": 0, "codec_name": "h264", "codec_type": "video", "width": 640, "height": 480}],
	  "format": {"size": "1000"}
	}`
	desc := mustDescriptor(t, report, 0)
	if desc.VideoBitrate() != 0 || desc.AudioBitrate() != 0 || desc.BitrateInferred() {
		t.Fatalf("expected no inference, got video=%d audio=%d", desc.VideoBitrate(), desc.AudioBitrate())
	}
	if desc.BitsPerPixel() != -1 {
		t.Fatalf("BitsPerPixel = %v, want -1", desc.BitsPerPixel())
	}
}

func TestDescriptorDurationFallsBackToStreamTag(t *testing.T) {
	report := `{
	  "streams": [{"index": 0, "codec_name": "vp9", "codec_type": "video", "tags": {"DURATION": "00:01:30.250000000"}}],
	  "format": {}
	}`
	desc := mustDescriptor(t, report, 0)
	if desc.Duration() != 90.25 {
		t.Fatalf("Duration = %v, want 90.25", desc.Duration())
	}
}

func TestDescriptorMultipleVideoStreams(t *testing.T) {
	report := `{
	  "streams": [
	    {"index": 0, "codec_name": "mjpeg", "codec_type": "video", "width": 320, "height": 240},
	    {"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "25/1"},
	    {"index": 2, "codec_name": "hevc", "codec_type": "video", "width": 1920, "height": 800}
	  ],
	  "format": {"duration": "10", "size": "100"}
	}`
	desc := mustDescriptor(t, report, 0)

	if desc.VideoCodec() != media.AmbiguousCodec {
		t.Fatalf("VideoCodec = %q", desc.VideoCodec())
	}
	codecs := desc.VideoCodecs()
	if len(codecs) != 3 || codecs[0] != "mjpeg" || codecs[2] != "hevc" {
		t.Fatalf("VideoCodecs = %v", codecs)
	}
	if desc.Width() != 1920 || desc.Height() != 1080 || desc.FrameRate() != 25 {
		t.Fatalf("primary stream should be first widest: %dx%d @ %v", desc.Width(), desc.Height(), desc.FrameRate())
	}
	if res, ok := desc.Resolution(0); !ok || res.String() != "320x240" {
		t.Fatalf("Resolution(0) = %v, %v", res, ok)
	}
}

func TestDescriptorLanguages(t *testing.T) {
	desc := mustDescriptor(t, movieReport, 0)
	langs := desc.Languages(media.TypeAudio)
	if len(langs) != 2 {
		t.Fatalf("expected 2 audio languages, got %v", langs)
	}
	if langs[0].Code != "en" || langs[0].Name != "English" {
		t.Fatalf("unexpected first language %+v", langs[0])
	}
	if langs[1].Code != "de" || langs[1].Index != 2 {
		t.Fatalf("unexpected second language %+v", langs[1])
	}
}

func TestDescriptorRejectsDuplicateIndex(t *testing.T) {
	report := `{
	  "streams": [
	    {"index": 0, "codec_type": "video"},
	    {"index": 0, "codec_type": "audio"}
	  ],
	  "format": {}
	}`
	desc, err := media.FromResult("/media/dup.mkv", 0, mustParse(t, report))
	if !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected ErrProbe, got %v", err)
	}
	if !desc.Invalid() || len(desc.Streams()) != 0 || desc.VideoCodec() != "" {
		t.Fatal("expected invalid descriptor with zero-valued attributes")
	}
}

type stubProber struct {
	results map[string]ffprobe.Result
	errs    map[string]error
	calls   []string
}

func (s *stubProber) Inspect(_ context.Context, path string) (ffprobe.Result, error) {
	s.calls = append(s.calls, path)
	if err, ok := s.errs[path]; ok {
		return ffprobe.Result{}, err
	}
	return s.results[path], nil
}

func TestProbeMissingFile(t *testing.T) {
	prober := &stubProber{}
	desc, err := media.Probe(context.Background(), prober, filepath.Join(t.TempDir(), "missing.mkv"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if desc == nil || !desc.Invalid() {
		t.Fatal("expected invalid descriptor")
	}
	if len(prober.calls) != 0 {
		t.Fatal("prober should not run for missing files")
	}
}

func TestProbeDirectoryIsNotFound(t *testing.T) {
	_, err := media.Probe(context.Background(), &stubProber{}, t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestProbeFailureMarksInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mkv")
	if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	prober := &stubProber{errs: map[string]error{path: errors.New("exit status 1")}}
	desc, err := media.Probe(context.Background(), prober, path)
	if !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected ErrProbe, got %v", err)
	}
	if !desc.Invalid() {
		t.Fatal("expected invalid descriptor")
	}
}

func TestProbeUsesStatSizeFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mkv")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	report := `{"streams": [{"index": 0, "codec_name": "h264", "codec_type": "video"}], "format": {}}`
	prober := &stubProber{results: map[string]ffprobe.Result{path: mustParse(t, report)}}
	desc, err := media.Probe(context.Background(), prober, path)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if desc.Size() != 2048 || desc.Path() != path {
		t.Fatalf("unexpected descriptor size=%d path=%s", desc.Size(), desc.Path())
	}
}
