package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// mediaExtensions lists the container extensions treated as media input.
var mediaExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".m4v": {}, ".wmv": {}, ".webm": {},
	".flv": {}, ".mov": {}, ".mpg": {}, ".mpeg": {}, ".ogg": {}, ".ogv": {},
	".ts": {}, ".vob": {}, ".rmvb": {},
}

// IsMedia reports whether name carries a known media container extension.
func IsMedia(name string) bool {
	_, ok := mediaExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SplitExt splits a file name at its last dot. The extension keeps the dot;
// names without a dot return an empty extension.
func SplitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// UniquePath returns path when nothing exists there. Otherwise it appends or
// increments a numeric "_N" suffix until the name is free, so "clip.mkv"
// becomes "clip_1.mkv" and "clip_4.mkv" becomes "clip_5.mkv".
func UniquePath(path string) (string, error) {
	exists, err := pathExists(path)
	if err != nil || !exists {
		return path, err
	}
	dir, file := filepath.Split(path)
	name, ext := SplitExt(file)

	stem, counter := name, 0
	if idx := strings.LastIndex(name, "_"); idx >= 0 {
		if n, convErr := strconv.Atoi(name[idx+1:]); convErr == nil && n >= 0 {
			stem, counter = name[:idx], n
		}
	}
	for {
		counter++
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		exists, err := pathExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ListFiles returns the regular files directly inside dir, sorted by name.
func ListFiles(dir string) ([]string, error) {
	return listEntries(dir, func(entry fs.DirEntry) bool { return entry.Type().IsRegular() })
}

// ListDirs returns the directories directly inside dir, sorted by name.
func ListDirs(dir string) ([]string, error) {
	return listEntries(dir, func(entry fs.DirEntry) bool { return entry.IsDir() })
}

// ListMedia returns the media files directly inside dir, sorted by name.
func ListMedia(dir string) ([]string, error) {
	return listEntries(dir, func(entry fs.DirEntry) bool {
		return entry.Type().IsRegular() && IsMedia(entry.Name())
	})
}

func listEntries(dir string, keep func(fs.DirEntry) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if keep(entry) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// DirSize sums the sizes of regular files directly inside dir.
func DirSize(dir string) (int64, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// DirSizeRecursive sums the sizes of every regular file below dir.
func DirSizeRecursive(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// MBToKbit converts megabytes (MiB) to kilobits.
func MBToKbit(megabytes float64) float64 {
	return megabytes * 8192
}
