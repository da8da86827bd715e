package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ffkit/internal/logging"
)

const runLogPattern = "batch-*.log"

// MainLogPath returns the shared log file inside dir.
func MainLogPath(dir string) string {
	return filepath.Join(dir, logging.LogFileName)
}

// RunLogPath returns the per-run log file for runID inside dir.
func RunLogPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("batch-%s.log", strings.TrimSpace(runID)))
}

// LatestRunLog returns the most recently modified run log in dir.
// ok is false when no run log exists.
func LatestRunLog(dir string) (path string, ok bool, err error) {
	matches, err := filepath.Glob(filepath.Join(dir, runLogPattern))
	if err != nil {
		return "", false, fmt.Errorf("list run logs: %w", err)
	}
	var newest os.FileInfo
	for _, match := range matches {
		info, statErr := os.Stat(match)
		if statErr != nil || info.IsDir() {
			continue
		}
		if newest == nil || info.ModTime().After(newest.ModTime()) {
			newest = info
			path = match
		}
	}
	return path, newest != nil, nil
}
