package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrMissingField is returned when a stream in the report lacks a field the
// rest of the pipeline depends on.
var ErrMissingField = errors.New("ffprobe report missing required field")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container. Well-known keys are
// decoded into typed fields; Fields keeps the complete decoded object,
// including nested maps such as tags and disposition.
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecLongName string            `json:"codec_long_name"`
	CodecType     string            `json:"codec_type"`
	Profile       string            `json:"profile"`
	Duration      string            `json:"duration"`
	BitRate       string            `json:"bit_rate"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	CodedWidth    int               `json:"coded_width"`
	CodedHeight   int               `json:"coded_height"`
	RFrameRate    string            `json:"r_frame_rate"`
	AvgFrameRate  string            `json:"avg_frame_rate"`
	PixFmt        string            `json:"pix_fmt"`
	SampleRate    string            `json:"sample_rate"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	Tags          map[string]string `json:"tags"`
	Fields        map[string]any    `json:"-"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename       string            `json:"filename"`
	NBStreams      int               `json:"nb_streams"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	Tags           map[string]string `json:"tags"`
	Fields         map[string]any    `json:"-"`
}

// ExitError reports a non-zero ffprobe exit.
type ExitError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffprobe %s: exit status %d", e.Path, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner invokes a specific ffprobe binary.
type Runner struct {
	Binary string
}

// Inspect probes path with the runner's binary.
func (r Runner) Inspect(ctx context.Context, path string) (Result, error) {
	return Inspect(ctx, r.Binary, path)
}

// Args returns the ffprobe argument list used to inspect path.
func Args(path string) []string {
	return []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "-i", path}
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, Args(path)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return Result{}, &ExitError{
			Path:     path,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	result, err := Parse(stdout.Bytes())
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe parse %s: %w", path, err)
	}
	return result, nil
}

// Parse decodes an ffprobe JSON report.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, err
	}
	result.raw = append([]byte(nil), data...)
	return result, nil
}

// UnmarshalJSON decodes a stream, rejecting objects without index or codec_type.
func (s *Stream) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, key := range []string{"index", "codec_type"} {
		if _, ok := fields[key]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingField, key)
		}
	}
	type plain Stream
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = Stream(decoded)
	s.Fields = fields
	return nil
}

// UnmarshalJSON decodes the format section and keeps the raw object.
func (f *Format) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	type plain Format
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*f = Format(decoded)
	f.Fields = fields
	return nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countType("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countType("audio")
}

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

// Tag returns a tag value by name. Matroska writers often suffix statistics
// tags with a language ("BPS-eng"), so those variants are accepted too.
func (s Stream) Tag(name string) (string, bool) {
	if len(s.Tags) == 0 {
		return "", false
	}
	if value, ok := s.Tags[name]; ok {
		return value, true
	}
	lowerName := strings.ToLower(name)
	var (
		match   string
		bestKey string
		found   bool
	)
	for key, value := range s.Tags {
		lower := strings.ToLower(key)
		if lower != lowerName && !strings.HasPrefix(lower, lowerName+"-") {
			continue
		}
		// smallest key wins so map order never changes the answer
		if !found || key < bestKey {
			match, bestKey, found = value, key, true
		}
	}
	return match, found
}

// BitsPerSecond returns the stream bitrate from bit_rate, falling back to the
// BPS statistics tag. Zero means the report carried neither.
func (s Stream) BitsPerSecond() int64 {
	if rate := parseFloat(s.BitRate); rate > 0 && !math.IsNaN(rate) {
		return int64(rate)
	}
	if tag, ok := s.Tag("BPS"); ok {
		if rate := parseFloat(tag); rate > 0 && !math.IsNaN(rate) {
			return int64(rate)
		}
	}
	return 0
}

// FrameRate parses r_frame_rate ("N/D") into frames per second.
func (s Stream) FrameRate() float64 {
	return ParseRational(s.RFrameRate)
}

// Language returns the stream's language tag, if any.
func (s Stream) Language() string {
	value, _ := s.Tag("language")
	return strings.TrimSpace(value)
}

// ParseRational converts "N/D" or a plain decimal into a float. Zero
// denominators and malformed input yield 0.
func ParseRational(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, ok := strings.Cut(value, "/")
	if !ok {
		parsed := parseFloat(value)
		if math.IsNaN(parsed) {
			return 0
		}
		return parsed
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
