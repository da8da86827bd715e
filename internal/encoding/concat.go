package encoding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ffkit/internal/fileutil"
	"ffkit/internal/logging"
	"ffkit/internal/services"
)

// ConcatArgs returns the ffmpeg arguments that join the files listed in
// manifest into output without re-encoding.
func ConcatArgs(manifest, output string) []string {
	return []string{"-f", "concat", "-safe", "0", "-i", manifest, "-c", "copy", output}
}

// WriteManifest renders the concat demuxer list for inputs.
func WriteManifest(inputs []string) string {
	var b strings.Builder
	for _, input := range inputs {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(input, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// Concat joins inputs, in order, into output with the concat demuxer. The
// inputs must share codecs and parameters. The temporary manifest is removed
// whether or not ffmpeg succeeds.
func (r *Runner) Concat(ctx context.Context, inputs []string, output string) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, output, "concat", "no input files", nil)
	}
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrEncode, output, "concat", "create output directory", err)
	}

	absolute := make([]string, 0, len(inputs))
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return Result{}, services.Wrap(services.ErrNotFound, input, "concat", "resolve input path", err)
		}
		absolute = append(absolute, abs)
	}

	manifest, err := os.CreateTemp(dir, ".ffkit-concat-*.txt")
	if err != nil {
		return Result{}, services.Wrap(services.ErrEncode, output, "concat", "create manifest", err)
	}
	manifestPath := manifest.Name()
	defer func() {
		if err := os.Remove(manifestPath); err != nil && !os.IsNotExist(err) {
			r.logger().Warn("failed to remove concat manifest",
				logging.Path(manifestPath),
				logging.Error(err),
			)
		}
	}()
	if _, err := manifest.WriteString(WriteManifest(absolute)); err != nil {
		_ = manifest.Close()
		return Result{}, services.Wrap(services.ErrEncode, output, "concat", "write manifest", err)
	}
	if err := manifest.Close(); err != nil {
		return Result{}, services.Wrap(services.ErrEncode, output, "concat", "close manifest", err)
	}

	args := ConcatArgs(manifestPath, output)
	elapsed, err := r.Run(ctx, args)
	return Result{Output: output, Args: args, Elapsed: elapsed}, err
}

// ConcatDirOptions controls ConcatDirectory.
type ConcatDirOptions struct {
	// OutputDir receives the joined file; defaults to the parent of the
	// input directory.
	OutputDir string
	// DeleteSources removes the inputs and the emptied directory once the
	// output exists.
	DeleteSources bool
}

// ConcatDirectory joins every media file in dir, sorted by name, into a file
// named after the first one. An empty directory is a no-op and returns "";
// a single file is moved instead of re-muxed.
func (r *Runner) ConcatDirectory(ctx context.Context, dir string, opts ConcatDirOptions) (string, error) {
	files, err := fileutil.ListMedia(dir)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, dir, "concat directory", "list media files", err)
	}
	if len(files) == 0 {
		return "", nil
	}

	outputDir := strings.TrimSpace(opts.OutputDir)
	if outputDir == "" {
		outputDir = filepath.Dir(filepath.Clean(dir))
	}
	target, err := fileutil.UniquePath(filepath.Join(outputDir, filepath.Base(files[0])))
	if err != nil {
		return "", services.Wrap(services.ErrEncode, dir, "concat directory", "resolve output path", err)
	}

	if len(files) == 1 {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return "", services.Wrap(services.ErrEncode, target, "concat directory", "create output directory", err)
		}
		if err := fileutil.MoveFile(files[0], target); err != nil {
			return "", services.Wrap(services.ErrEncode, files[0], "concat directory", "move single file", err)
		}
		return target, nil
	}

	if _, err := r.Concat(ctx, files, target); err != nil {
		return "", err
	}
	if !opts.DeleteSources {
		return target, nil
	}
	if info, err := os.Stat(target); err != nil || !info.Mode().IsRegular() {
		return target, services.Wrap(services.ErrEncode, target, "concat directory", "output missing, sources kept", err)
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return target, services.Wrap(services.ErrEncode, file, "concat directory", "remove source", err)
		}
	}
	if err := os.Remove(dir); err != nil {
		r.logger().Warn("source directory not removed",
			logging.Path(dir),
			logging.Error(err),
		)
	}
	return target, nil
}

// ConcatGroups runs ConcatDirectory on every subdirectory of parent.
func (r *Runner) ConcatGroups(ctx context.Context, parent string, opts ConcatDirOptions) ([]string, error) {
	dirs, err := fileutil.ListDirs(parent)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, parent, "concat groups", "list directories", err)
	}
	outputs := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		output, err := r.ConcatDirectory(ctx, dir, opts)
		if err != nil {
			return outputs, fmt.Errorf("concat %s: %w", dir, err)
		}
		if output != "" {
			outputs = append(outputs, output)
		}
	}
	return outputs, nil
}
