package batch

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"ffkit/internal/fileutil"
	"ffkit/internal/media"
	"ffkit/internal/services"
)

var bppHeader = []string{"bits/pixel", "video bitrate bits", "audio bitrate bits", "file size bytes", "file path"}

// BitsPerPixelReport writes a CSV row for every media file under root's
// immediate subdirectories whose video codec differs from the target codec.
// The distribution helps tune the quality levels.
func (w *Workflow) BitsPerPixelReport(ctx context.Context, root string, out io.Writer) (int, error) {
	dirs, err := fileutil.ListDirs(root)
	if err != nil {
		return 0, services.Wrap(services.ErrNotFound, root, "bpp report", "list directories", err)
	}
	writer := csv.NewWriter(out)
	if err := writer.Write(bppHeader); err != nil {
		return 0, err
	}
	rows := 0
	for _, dir := range dirs {
		scan, err := media.ScanDirectory(ctx, w.prober, dir, w.logger)
		if err != nil {
			return rows, err
		}
		for _, desc := range scan.Valid {
			if desc.VideoCodec() == w.cfg.Batch.TargetCodec {
				continue
			}
			record := []string{
				strconv.FormatFloat(desc.BitsPerPixel(), 'f', -1, 64),
				strconv.FormatInt(desc.VideoBitrate(), 10),
				strconv.FormatInt(desc.AudioBitrate(), 10),
				strconv.FormatInt(desc.Size(), 10),
				desc.Path(),
			}
			if err := writer.Write(record); err != nil {
				return rows, err
			}
			rows++
		}
	}
	writer.Flush()
	return rows, writer.Error()
}
