package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"ffkit/internal/encoding"
	"ffkit/internal/history"
	"ffkit/internal/logging"
	"ffkit/internal/services"
)

// Job is one unit of batch work. Run is invoked at most once.
type Job struct {
	Kind    history.Kind
	Input   string
	Output  string
	Profile string
	Run     func(ctx context.Context) (encoding.Result, error)
}

// Outcome is what happened to one job.
type Outcome struct {
	Job    Job
	Result encoding.Result
	Err    error
	// NotStarted is set when the batch was cancelled before the job began.
	NotStarted  bool
	InputBytes  int64
	OutputBytes int64
	Elapsed     time.Duration
}

// Failed reports whether the job ran and returned an error.
func (o Outcome) Failed() bool { return !o.NotStarted && o.Err != nil }

// Report summarizes a finished batch.
type Report struct {
	RunID    string
	Elapsed  time.Duration
	Outcomes []Outcome
	// InputBytes and OutputBytes count successful jobs only.
	InputBytes  int64
	OutputBytes int64
	// Invalid lists files left out before any job was queued: probe
	// failures and originals that could not be moved.
	Invalid []string
}

// Succeeded counts jobs that finished without error.
func (r Report) Succeeded() int {
	count := 0
	for _, o := range r.Outcomes {
		if !o.NotStarted && o.Err == nil {
			count++
		}
	}
	return count
}

// Failures returns the jobs that ran and failed, in submission order.
func (r Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// NotStarted counts jobs skipped because the batch was cancelled.
func (r Report) NotStarted() int {
	count := 0
	for _, o := range r.Outcomes {
		if o.NotStarted {
			count++
		}
	}
	return count
}

// Throughput is the converted input in megabytes per minute of wall time.
func (r Report) Throughput() float64 {
	minutes := r.Elapsed.Minutes()
	if minutes <= 0 || r.InputBytes <= 0 {
		return 0
	}
	return float64(r.InputBytes) / 1e6 / minutes
}

// Ratio is output size over input size for successful jobs.
func (r Report) Ratio() float64 {
	if r.InputBytes <= 0 {
		return 0
	}
	return float64(r.OutputBytes) / float64(r.InputBytes)
}

// Summary renders a one-paragraph human readable report.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d jobs succeeded in %s", r.Succeeded(), len(r.Outcomes), r.Elapsed.Round(time.Second))
	if r.InputBytes > 0 {
		fmt.Fprintf(&b, "\n%s => %s (ratio %.3f), %.2f MB/min",
			humanize.Bytes(uint64(r.InputBytes)), humanize.Bytes(uint64(r.OutputBytes)), r.Ratio(), r.Throughput())
	}
	if skipped := r.NotStarted(); skipped > 0 {
		fmt.Fprintf(&b, "\n%d jobs not started", skipped)
	}
	for _, failed := range r.Failures() {
		fmt.Fprintf(&b, "\nfailed: %s: %v", failed.Job.Input, failed.Err)
	}
	for _, path := range r.Invalid {
		fmt.Fprintf(&b, "\ninvalid: %s", path)
	}
	return b.String()
}

// QueueOptions configures a Queue.
type QueueOptions struct {
	// Limit bounds concurrent jobs; values below 1 run one at a time.
	Limit   int
	RunID   string
	Logger  *slog.Logger
	History *history.Store
	// Progress receives a progress bar when set. Callers pass nil when the
	// output is not a terminal.
	Progress io.Writer
	// Interruptible passes cancellation through to running jobs. Single-file
	// commands set it so an interrupt stops ffmpeg instead of waiting.
	Interruptible bool
}

// Queue runs jobs on a bounded pool. Failed jobs are recorded and the rest
// continue; nothing is retried.
type Queue struct {
	limit    int
	runID    string
	logger   *slog.Logger
	store    *history.Store
	progress io.Writer
	jobs     []Job

	interruptible bool
}

// NewQueue builds an empty queue.
func NewQueue(opts QueueOptions) *Queue {
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Queue{
		limit:    limit,
		runID:    runID,
		logger:   logging.NewComponentLogger(opts.Logger, "batch"),
		store:    opts.History,
		progress: opts.Progress,

		interruptible: opts.Interruptible,
	}
}

// RunID identifies this batch in logs and history.
func (q *Queue) RunID() string { return q.runID }

// Add appends jobs in submission order.
func (q *Queue) Add(jobs ...Job) { q.jobs = append(q.jobs, jobs...) }

// Len returns the number of queued jobs.
func (q *Queue) Len() int { return len(q.jobs) }

// Run executes every queued job. Cancelling ctx stops new jobs from starting;
// jobs already running finish. The returned error is ctx's error when the
// batch was cancelled and nil otherwise, even if jobs failed.
func (q *Queue) Run(ctx context.Context) (Report, error) {
	ctx = services.WithRunID(ctx, q.runID)
	start := time.Now()
	outcomes := make([]Outcome, len(q.jobs))

	q.logger.Info("batch started",
		logging.String(logging.FieldRunID, q.runID),
		logging.Int("jobs", len(q.jobs)),
		logging.Int("max_concurrent", q.limit),
	)

	bar := q.newProgressBar(len(q.jobs))
	var g errgroup.Group
	g.SetLimit(q.limit)
	for i, job := range q.jobs {
		g.Go(func() error {
			outcomes[i] = q.runJob(ctx, i+1, job)
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	report := Report{RunID: q.runID, Elapsed: time.Since(start), Outcomes: outcomes}
	for _, o := range outcomes {
		if !o.NotStarted && o.Err == nil {
			report.InputBytes += o.InputBytes
			report.OutputBytes += o.OutputBytes
		}
	}

	q.logger.Info("batch finished",
		logging.String(logging.FieldRunID, q.runID),
		logging.Int("succeeded", report.Succeeded()),
		logging.Int("failed", len(report.Failures())),
		logging.Int("not_started", report.NotStarted()),
		logging.Duration("elapsed", report.Elapsed),
		logging.Float64("mb_per_minute", report.Throughput()),
	)
	return report, ctx.Err()
}

func (q *Queue) runJob(ctx context.Context, position int, job Job) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Job: job, Err: err, NotStarted: true}
	}
	// Unless interruptible, cancellation only gates job starts.
	base := ctx
	if !q.interruptible {
		base = context.WithoutCancel(ctx)
	}
	jobCtx := services.WithPath(services.WithJobID(base, position), job.Input)
	logger := logging.WithContext(jobCtx, q.logger)

	outcome := Outcome{Job: job, InputBytes: fileSize(job.Input)}
	historyID := q.recordStart(jobCtx, logger, job, outcome.InputBytes)

	logger.Info("job started", logging.String("output", job.Output))
	started := time.Now()
	outcome.Result, outcome.Err = job.Run(jobCtx)
	outcome.Elapsed = time.Since(started)

	output := outcome.Result.Output
	if output == "" {
		output = job.Output
	}
	if outcome.Err == nil {
		outcome.OutputBytes = fileSize(output)
		logger.Info("job finished",
			logging.String("output", output),
			logging.Duration("elapsed", outcome.Elapsed),
			logging.String("size", humanize.Bytes(uint64(outcome.OutputBytes))),
		)
	} else {
		logging.ErrorWithContext(logger, "job failed", "batch_job_failed",
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "rerun the file alone with --log-level debug to see ffmpeg output"),
		)
	}
	q.recordFinish(jobCtx, logger, historyID, output, outcome)
	return outcome
}

func (q *Queue) recordStart(ctx context.Context, logger *slog.Logger, job Job, inputBytes int64) int64 {
	if q.store == nil {
		return 0
	}
	kind := job.Kind
	if kind == "" {
		kind = history.KindConvert
	}
	id, err := q.store.Start(ctx, history.Job{
		RunID:      q.runID,
		Kind:       kind,
		InputPath:  recordedPath(job.Input),
		OutputPath: recordedPath(job.Output),
		Profile:    job.Profile,
		InputBytes: inputBytes,
	})
	if err != nil {
		logging.WarnWithContext(logger, "history record not written", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job missing from ffkit history"),
		)
		return 0
	}
	return id
}

func (q *Queue) recordFinish(ctx context.Context, logger *slog.Logger, id int64, output string, outcome Outcome) {
	if q.store == nil || id == 0 {
		return
	}
	result := history.Outcome{
		Status:      history.StatusSucceeded,
		OutputPath:  recordedPath(output),
		Args:        outcome.Result.Args,
		OutputBytes: outcome.OutputBytes,
		Duration:    outcome.Elapsed,
	}
	if outcome.Err != nil {
		result.Status = history.StatusFailed
		result.ErrorKind = services.Kind(outcome.Err)
		result.ErrorMessage = outcome.Err.Error()
	}
	if err := q.store.Finish(ctx, id, result); err != nil {
		logging.WarnWithContext(logger, "history outcome not written", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job stays marked running in ffkit history"),
		)
	}
}

func (q *Queue) newProgressBar(total int) *progressbar.ProgressBar {
	if q.progress == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(q.progress),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

// recordedPath makes local paths absolute so history lookups by file work
// regardless of the directory a command ran from. URLs pass through.
func recordedPath(path string) string {
	if path == "" || strings.Contains(path, "://") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}
