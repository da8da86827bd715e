package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"ffkit/internal/fileutil"
	"ffkit/internal/media"
	"ffkit/internal/services"
)

// DirectoryAnalysis tallies one directory's conversion backlog.
type DirectoryAnalysis struct {
	Dir              string
	Convertible      int
	ConvertibleBytes int64
	Invalid          int
	InvalidBytes     int64
	// OtherBytes covers non-media files and nested directories.
	OtherBytes int64
	// Codecs counts convertible files by video codec.
	Codecs map[string]int
}

// Analysis is the result of Analyze.
type Analysis struct {
	Root        string
	TargetCodec string
	// Directories lists directories with convertible files, largest
	// backlog first.
	Directories []DirectoryAnalysis
	Invalid     []string
}

// TotalBytes sums the convertible bytes across directories.
func (a Analysis) TotalBytes() int64 {
	var total int64
	for _, dir := range a.Directories {
		total += dir.ConvertibleBytes
	}
	return total
}

// Analyze reports, per immediate subdirectory of root, how many media files
// are not yet in the target codec and how large they are.
func (w *Workflow) Analyze(ctx context.Context, root string) (Analysis, error) {
	dirs, err := fileutil.ListDirs(root)
	if err != nil {
		return Analysis{}, services.Wrap(services.ErrNotFound, root, "analyze", "list directories", err)
	}
	analysis := Analysis{Root: root, TargetCodec: w.cfg.Batch.TargetCodec}
	for _, dir := range dirs {
		entry, invalid, err := w.analyzeDirectory(ctx, dir)
		if err != nil {
			return analysis, err
		}
		analysis.Invalid = append(analysis.Invalid, invalid...)
		if entry.Convertible > 0 {
			analysis.Directories = append(analysis.Directories, entry)
		}
	}
	sort.SliceStable(analysis.Directories, func(i, j int) bool {
		return analysis.Directories[i].ConvertibleBytes > analysis.Directories[j].ConvertibleBytes
	})
	return analysis, nil
}

func (w *Workflow) analyzeDirectory(ctx context.Context, dir string) (DirectoryAnalysis, []string, error) {
	entry := DirectoryAnalysis{Dir: dir, Codecs: map[string]int{}}

	scan, err := media.ScanDirectory(ctx, w.prober, dir, w.logger)
	if err != nil {
		return entry, nil, err
	}
	for _, desc := range scan.Valid {
		if desc.VideoCodec() == w.cfg.Batch.TargetCodec {
			continue
		}
		entry.Convertible++
		entry.ConvertibleBytes += fileSize(desc.Path())
		entry.Codecs[desc.VideoCodec()]++
	}
	for _, path := range scan.Invalid {
		entry.Invalid++
		entry.InvalidBytes += fileSize(path)
	}

	files, err := fileutil.ListFiles(dir)
	if err != nil {
		return entry, nil, services.Wrap(services.ErrNotFound, dir, "analyze", "list files", err)
	}
	for _, file := range files {
		if !fileutil.IsMedia(file) {
			entry.OtherBytes += fileSize(file)
		}
	}
	nested, err := fileutil.ListDirs(dir)
	if err != nil {
		return entry, nil, services.Wrap(services.ErrNotFound, dir, "analyze", "list directories", err)
	}
	for _, sub := range nested {
		size, err := fileutil.DirSizeRecursive(sub)
		if err != nil && !os.IsPermission(err) {
			return entry, nil, services.Wrap(services.ErrNotFound, sub, "analyze", "measure directory", err)
		}
		entry.OtherBytes += size
	}
	return entry, scan.Invalid, nil
}

// WriteLog renders the analysis as a plain-text report. Terse output omits
// invalid and other-file lines for directories where they are zero.
func (a Analysis) WriteLog(w io.Writer, generated time.Time, terse bool) error {
	bw := &errWriter{w: w}
	bw.printf("Generated on: %s\n\n", generated.Format("Jan 02 2006, 03:04 PM"))
	bw.printf("Target codec: %s\n", a.TargetCodec)
	bw.printf("Total to convert: %s\n\n", humanize.Bytes(uint64(a.TotalBytes())))
	for _, dir := range a.Directories {
		bw.printf("%s\n", filepath.Base(dir.Dir))
		bw.printf("Size of files to convert: %s\n", humanize.Bytes(uint64(dir.ConvertibleBytes)))
		bw.printf("Number of files to convert: %d\n", dir.Convertible)
		if !terse || dir.Invalid > 0 {
			bw.printf("Size of invalid files: %s\n", humanize.Bytes(uint64(dir.InvalidBytes)))
			bw.printf("Number of invalid files: %d\n", dir.Invalid)
		}
		if !terse || dir.OtherBytes > 0 {
			bw.printf("Size of other files & folders: %s\n", humanize.Bytes(uint64(dir.OtherBytes)))
		}
		bw.printf("\n")
	}
	if len(a.Invalid) > 0 {
		bw.printf("Invalid/malformed files:\n")
		for _, path := range a.Invalid {
			bw.printf("\t%s\n", path)
		}
	}
	return bw.err
}

// LogFileName is the dated name Analyze logs are saved under.
func LogFileName(now time.Time) string {
	return "ConversionLog" + now.Format("20060102") + ".txt"
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
