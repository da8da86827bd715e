package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ffkit/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputPath(t *testing.T) {
	dir := t.TempDir()
	if result := CheckOutputPath("out", filepath.Join(dir, "nested", "deeper", "a.mkv")); !result.Passed {
		t.Fatalf("expected missing parents beneath a writable dir to pass: %s", result.Detail)
	}

	blocker := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckOutputPath("out", filepath.Join(blocker, "a.mkv")); result.Passed {
		t.Fatal("expected failure when the parent is a file")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubBinaries(t *testing.T) {
	binDir := t.TempDir()
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		script := "#!/bin/sh\necho '" + name + " version 7.1 Copyright'\n"
		if err := os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
	if want := filepath.Join(binDir, "ffmpeg") + " (7.1)"; results[2].Detail != want {
		t.Fatalf("ffmpeg detail = %q, want %q", results[2].Detail, want)
	}
}

func TestRunAll_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe to fail, got %#v", failed)
	}
}
