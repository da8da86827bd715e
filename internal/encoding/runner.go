package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ffkit/internal/logging"
	"ffkit/internal/services"
)

// stopGrace is how long ffmpeg gets to finalize its output after an
// interrupt before it is killed.
const stopGrace = 10 * time.Second

// Runner invokes ffmpeg with compiled argument lists.
type Runner struct {
	Binary string
	Logger *slog.Logger
	// Progress, when set, receives parsed status updates while ffmpeg runs.
	Progress func(Progress)
	// Duration is the expected media duration in seconds, used to compute
	// progress percentages. Zero leaves Percent at -1.
	Duration float64
}

// NewRunner returns a runner for binary, defaulting to "ffmpeg".
func NewRunner(binary string, logger *slog.Logger) *Runner {
	return &Runner{Binary: binary, Logger: logger}
}

func (r *Runner) binary() string {
	if r == nil || strings.TrimSpace(r.Binary) == "" {
		return "ffmpeg"
	}
	return strings.TrimSpace(r.Binary)
}

func (r *Runner) logger() *slog.Logger {
	var base *slog.Logger
	if r != nil {
		base = r.Logger
	}
	return logging.NewComponentLogger(base, "encoding")
}

// Run executes ffmpeg with args and returns the wall-clock time it took. The
// last argument is treated as the output path; its directory is created
// first. Cancelling ctx interrupts ffmpeg.
func (r *Runner) Run(ctx context.Context, args []string) (time.Duration, error) {
	if len(args) == 0 {
		return 0, services.Wrap(services.ErrValidation, "ffmpeg", "run", "no arguments", nil)
	}
	output := args[len(args)-1]
	if dir := filepath.Dir(output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, services.Wrap(services.ErrEncode, output, "prepare output", "create output directory", err)
		}
	}

	logger := r.logger()
	logger.Info("launching ffmpeg",
		logging.String("command", r.binary()+" "+strings.Join(args, " ")),
		logging.Path(output),
	)

	stderr := newLineWriter(stderrTailLines, r.progressHandler(logger, output))
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	cmd.Stderr = stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopGrace

	start := time.Now()
	err := cmd.Run()
	stderr.Flush()
	elapsed := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return elapsed, ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		detail := fmt.Sprintf("exit status %d", exitCode)
		if tail := stderr.Tail(); tail != "" {
			detail += ": " + tail
		}
		return elapsed, services.Wrap(services.ErrEncode, output, "ffmpeg", detail, err)
	}

	logger.Info("ffmpeg finished",
		logging.Path(output),
		logging.Duration("elapsed", elapsed),
	)
	return elapsed, nil
}

func (r *Runner) progressHandler(logger *slog.Logger, output string) func(string) bool {
	sampler := newProgressSampler(10)
	return func(line string) bool {
		update, ok := parseProgress(line, r.Duration)
		if !ok {
			return false
		}
		if r.Progress != nil {
			r.Progress(update)
		}
		if sampler.shouldLog(update.Percent) {
			logger.Debug("ffmpeg progress",
				logging.Path(output),
				logging.String("progress_message", update.Message()),
			)
		}
		return true
	}
}
