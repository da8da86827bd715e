package media

import (
	"context"
	"log/slog"

	"ffkit/internal/fileutil"
	"ffkit/internal/logging"
	"ffkit/internal/services"
)

// ScanResult is the outcome of probing every media file in a directory.
type ScanResult struct {
	Valid   []*Descriptor
	Invalid []string
}

// ScanDirectory probes the media files directly inside dir in name order.
// Files that are missing or fail to probe are collected in Invalid and the
// scan continues; any other error, including cancellation, stops it.
func ScanDirectory(ctx context.Context, prober Prober, dir string, logger *slog.Logger) (ScanResult, error) {
	logger = logging.NewComponentLogger(logger, "scan")
	files, err := fileutil.ListMedia(dir)
	if err != nil {
		return ScanResult{}, services.Wrap(services.ErrNotFound, dir, "scan", "list media files", err)
	}

	var result ScanResult
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		desc, err := Probe(ctx, prober, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			if !services.Skippable(err) {
				return result, err
			}
			logging.WarnWithContext(logger, "skipping unreadable media file", "media_probe_failed",
				logging.Path(path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run ffprobe on the file to inspect the failure"),
				logging.String(logging.FieldImpact, "file excluded from this run"),
			)
			result.Invalid = append(result.Invalid, path)
			continue
		}
		logger.Debug("probed media file",
			logging.Path(path),
			logging.String("video_codec", desc.VideoCodec()),
			logging.Int("streams", len(desc.parsed.streams)),
		)
		result.Valid = append(result.Valid, desc)
	}
	return result, nil
}
