package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ffkit/internal/config"
	"ffkit/internal/convert"
	"ffkit/internal/encoding"
	"ffkit/internal/fileutil"
	"ffkit/internal/history"
	"ffkit/internal/logging"
	"ffkit/internal/logs"
	"ffkit/internal/media"
	"ffkit/internal/media/ffprobe"
	"ffkit/internal/services"
)

// Options supplies the collaborators a Workflow uses. Nil values fall back to
// the binaries named in the configuration.
type Options struct {
	Prober   media.Prober
	Runner   *encoding.Runner
	History  *history.Store
	Logger   *slog.Logger
	Progress io.Writer
}

// Workflow runs the directory-level tools: conversion to the target codec,
// analysis, and bits-per-pixel reports.
type Workflow struct {
	cfg      *config.Config
	prober   media.Prober
	runner   *encoding.Runner
	store    *history.Store
	logger   *slog.Logger
	progress io.Writer
}

// New builds a Workflow from cfg.
func New(cfg *config.Config, opts Options) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	prober := opts.Prober
	if prober == nil {
		prober = ffprobe.Runner{Binary: cfg.FFprobeBinary()}
	}
	runner := opts.Runner
	if runner == nil {
		runner = encoding.NewRunner(cfg.FFmpegBinary(), logger)
	}
	return &Workflow{
		cfg:      cfg,
		prober:   prober,
		runner:   runner,
		store:    opts.History,
		logger:   logger,
		progress: opts.Progress,
	}
}

// ConvertOptions controls ConvertDirectories.
type ConvertOptions struct {
	// Profile names the base conversion profile; empty uses the configured
	// default. The crf and audio settings come from the quality table.
	Profile string
}

// QualityTable converts the configured levels into a convert.QualityTable.
func QualityTable(cfg *config.Config) (convert.QualityTable, error) {
	table := convert.QualityTable{Default: qualityFromLevel(cfg.Quality.Default)}
	for _, level := range cfg.Quality.Levels {
		table.Thresholds = append(table.Thresholds, level.MinBPP)
		table.Levels = append(table.Levels, qualityFromLevel(level))
	}
	return table, table.Validate()
}

func qualityFromLevel(level config.QualityLevel) convert.Quality {
	return convert.Quality{CRF: level.CRF, AudioKbps: level.AudioKbps, Channels: level.Channels}
}

// ConvertDirectories converts every media file in dirs that is not already in
// the target codec. Each source is first moved into the originals directory;
// the converted .mkv is written where the source was. Files whose output
// already exists are treated as converted by an earlier run.
func (w *Workflow) ConvertDirectories(ctx context.Context, dirs []string, opts ConvertOptions) (Report, error) {
	profileName := opts.Profile
	if strings.TrimSpace(profileName) == "" {
		profileName = w.cfg.Encoding.DefaultProfile
	}
	profile, err := convert.LookupProfile(profileName)
	if err != nil {
		return Report{}, err
	}
	table, err := QualityTable(w.cfg)
	if err != nil {
		return Report{}, err
	}

	runID := uuid.NewString()
	logger, closeLog := w.runLogger(runID)
	defer closeLog()

	queue := NewQueue(QueueOptions{
		Limit:    w.cfg.Batch.MaxConcurrent,
		RunID:    runID,
		Logger:   logger,
		History:  w.store,
		Progress: w.progress,
	})

	var (
		locks   []*flock.Flock
		invalid []string
	)
	defer func() {
		for _, lock := range locks {
			_ = lock.Unlock()
		}
	}()

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return Report{}, services.Wrap(services.ErrNotFound, dir, "convert directory", "resolve path", err)
		}
		lock, err := lockDirectory(w.cfg.Paths.StateDir, abs)
		if err != nil {
			return Report{}, err
		}
		locks = append(locks, lock)

		jobs, skipped, err := w.prepareDirectory(ctx, logger, abs, profile, table)
		if err != nil {
			return Report{}, err
		}
		invalid = append(invalid, skipped...)
		queue.Add(jobs...)
	}

	if queue.Len() == 0 {
		logger.Info("nothing to convert", logging.Strings("directories", dirs))
		return Report{RunID: runID, Invalid: invalid}, nil
	}
	report, err := queue.Run(ctx)
	report.Invalid = invalid
	return report, err
}

// ConvertTree runs ConvertDirectories over root's immediate subdirectories,
// skipping the originals directory itself.
func (w *Workflow) ConvertTree(ctx context.Context, root string, opts ConvertOptions) (Report, error) {
	subdirs, err := fileutil.ListDirs(root)
	if err != nil {
		return Report{}, services.Wrap(services.ErrNotFound, root, "convert tree", "list directories", err)
	}
	dirs := make([]string, 0, len(subdirs))
	for _, dir := range subdirs {
		if filepath.Base(dir) == filepath.Base(w.cfg.Batch.OriginalsDir) {
			continue
		}
		dirs = append(dirs, dir)
	}
	return w.ConvertDirectories(ctx, dirs, opts)
}

// prepareDirectory moves convertible files of dir into its originals
// directory and returns one job per original still lacking an output. Files
// that could not be probed or moved are returned as invalid; they do not stop
// the rest of the batch.
func (w *Workflow) prepareDirectory(ctx context.Context, logger *slog.Logger, dir string, profile convert.Profile, table convert.QualityTable) ([]Job, []string, error) {
	scan, err := media.ScanDirectory(ctx, w.prober, dir, logger)
	if err != nil {
		return nil, nil, err
	}
	invalid := append([]string(nil), scan.Invalid...)
	originals := w.cfg.OriginalsDirFor(dir)
	target := w.cfg.Batch.TargetCodec

	for _, desc := range scan.Valid {
		if len(desc.VideoStreams()) == 0 {
			logger.Debug("skipping file without video", logging.Path(desc.Path()))
			continue
		}
		if desc.VideoCodec() == target {
			continue
		}
		dest := filepath.Join(originals, filepath.Base(desc.Path()))
		if _, err := os.Stat(dest); err == nil {
			logging.WarnWithContext(logger, "original already exists; file left in place", "batch_original_exists",
				logging.Path(desc.Path()),
				logging.String("original", dest),
				logging.String(logging.FieldErrorHint, "remove or rename the duplicate in the originals directory"),
				logging.String(logging.FieldImpact, "file not converted"),
			)
			invalid = append(invalid, desc.Path())
			continue
		}
		if err := fileutil.MoveFile(desc.Path(), dest); err != nil {
			logging.WarnWithContext(logger, "original not moved; file left in place", "batch_original_move_failed",
				logging.Path(desc.Path()),
				logging.String("original", dest),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the originals directory"),
				logging.String(logging.FieldImpact, "file not converted"),
			)
			invalid = append(invalid, desc.Path())
			continue
		}
		logger.Debug("moved original", logging.Path(desc.Path()), logging.String("original", dest))
	}

	sources, err := fileutil.ListMedia(originals)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, invalid, nil
		}
		return nil, invalid, services.Wrap(services.ErrNotFound, originals, "convert directory", "list originals", err)
	}

	jobs := make([]Job, 0, len(sources))
	for source, output := range plannedOutputs(dir, sources) {
		if _, err := os.Stat(output); err == nil {
			logger.Debug("output exists; skipping", logging.Path(source), logging.String("output", output))
			continue
		}
		jobs = append(jobs, w.convertJob(logger, source, output, profile, table))
	}
	return jobs, invalid, nil
}

// plannedOutputs maps each source to <dir>/<stem>.mkv in source order. When
// several sources share a stem ("a.avi", "a.mp4") the first keeps the plain
// name and the rest get their extension appended ("a_mp4.mkv"), so the mapping
// is stable across runs and no two jobs write the same file.
func plannedOutputs(dir string, sources []string) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		taken := make(map[string]bool, len(sources))
		for _, source := range sources {
			stem, ext := fileutil.SplitExt(filepath.Base(source))
			name := stem + ".mkv"
			if taken[name] {
				name = stem + "_" + strings.TrimPrefix(strings.ToLower(ext), ".") + ".mkv"
			}
			for n := 1; taken[name]; n++ {
				name = fmt.Sprintf("%s_%d.mkv", stem, n)
			}
			taken[name] = true
			if !yield(source, filepath.Join(dir, name)) {
				return
			}
		}
	}
}

func (w *Workflow) convertJob(base *slog.Logger, source, output string, profile convert.Profile, table convert.QualityTable) Job {
	return Job{
		Kind:    history.KindConvert,
		Input:   source,
		Output:  output,
		Profile: profile.Name,
		Run: func(ctx context.Context) (encoding.Result, error) {
			logger := logging.WithContext(ctx, base)
			desc, err := media.Probe(ctx, w.prober, source)
			if err != nil {
				return encoding.Result{}, err
			}
			quality := convert.DecideQuality(table, desc.BitsPerPixel())
			logger.Info("quality selected",
				logging.Float64("bits_per_pixel", desc.BitsPerPixel()),
				logging.Int("crf", quality.CRF),
				logging.Int("audio_kbps", quality.AudioKbps),
			)
			plan, err := convert.NewPlan(desc, output,
				convert.WithVerbosity(w.cfg.Encoding.Verbosity),
				convert.WithLogger(logger),
			)
			if err != nil {
				return encoding.Result{}, err
			}
			if err := profile.WithQuality(quality).Apply(plan, w.cfg.Encoding.AudioLanguage); err != nil {
				return encoding.Result{}, err
			}
			result, err := w.runner.Convert(ctx, plan)
			if err != nil {
				return result, err
			}
			if w.cfg.Batch.DeleteOriginals {
				if err := os.Remove(source); err != nil {
					return result, services.Wrap(services.ErrEncode, source, "convert", "delete original", err)
				}
			}
			return result, nil
		},
	}
}

// runLogger tees the workflow logger into a per-run file in the log
// directory and prunes run logs past retention.
func (w *Workflow) runLogger(runID string) (*slog.Logger, func()) {
	dir := strings.TrimSpace(w.cfg.Paths.LogDir)
	if dir == "" {
		return w.logger.With(logging.String(logging.FieldRunID, runID)), func() {}
	}
	logging.PruneRunLogs(w.logger, dir, "batch-*.log", w.cfg.Logging.RetentionDays)
	path := logs.RunLogPath(dir, runID)
	logger, closer, err := logging.NewRunLogger(w.logger, path, runID, logging.Options{
		Level:  w.cfg.Logging.Level,
		Format: w.cfg.Logging.Format,
	})
	if err != nil {
		logging.WarnWithContext(w.logger, "run log unavailable", "run_log_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch output only goes to the main log"),
		)
		return w.logger.With(logging.String(logging.FieldRunID, runID)), func() {}
	}
	return logger, func() { _ = closer.Close() }
}
