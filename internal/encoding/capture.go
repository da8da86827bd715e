package encoding

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"ffkit/internal/fileutil"
	"ffkit/internal/services"
)

// Capture probing limits, in microseconds and bytes.
const (
	captureAnalyzeDuration = 5000000
	captureProbeSize       = 5000000
)

// CaptureArgs returns the arguments that save a network stream to output.
func CaptureArgs(url, output string, verbosity int) []string {
	return []string{
		"-v", strconv.Itoa(verbosity),
		"-analyzeduration", strconv.Itoa(captureAnalyzeDuration),
		"-probesize", strconv.Itoa(captureProbeSize),
		"-i", url,
		"-c", "copy",
		output,
	}
}

// CapturePath forces a .ts extension onto output and moves it aside if a
// file already exists there.
func CapturePath(output string) (string, error) {
	dir, file := filepath.Split(output)
	name, _ := fileutil.SplitExt(file)
	if strings.TrimSpace(name) == "" {
		name = "capture"
	}
	return fileutil.UniquePath(filepath.Join(dir, name+".ts"))
}

// Capture copies the stream at url (typically an HLS playlist) into a
// transport-stream file until the stream ends or ctx is cancelled. Stopping
// through ctx is the normal way to end a live capture and is not an error.
func (r *Runner) Capture(ctx context.Context, url, output string, verbosity int) (Result, error) {
	if strings.TrimSpace(url) == "" {
		return Result{}, services.Wrap(services.ErrValidation, output, "capture", "stream url is required", nil)
	}
	target, err := CapturePath(output)
	if err != nil {
		return Result{}, services.Wrap(services.ErrEncode, output, "capture", "resolve output path", err)
	}
	args := CaptureArgs(url, target, verbosity)
	elapsed, err := r.Run(ctx, args)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		err = nil
	}
	return Result{Output: target, Args: args, Elapsed: elapsed}, err
}
