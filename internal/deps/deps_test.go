package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present", "exit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank result: %#v", results[2])
	}
}

func TestInspectReportsVersion(t *testing.T) {
	bin := writeStub(t, t.TempDir(), "ffmpeg", "echo 'ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023'\necho 'built with gcc'\n")

	status := Inspect(context.Background(), Requirement{Name: "FFmpeg", Command: bin})
	if !status.Available {
		t.Fatalf("expected available, got %#v", status)
	}
	if status.Version != "6.1.1-3ubuntu5" {
		t.Fatalf("unexpected version %q", status.Version)
	}
}

func TestInspectVersionFailure(t *testing.T) {
	bin := writeStub(t, t.TempDir(), "ffprobe", "exit 1\n")

	status := Inspect(context.Background(), Requirement{Name: "FFprobe", Command: bin})
	if !status.Available {
		t.Fatalf("binary exists, expected available")
	}
	if status.Version != "" || status.Detail == "" {
		t.Fatalf("expected detail without version, got %#v", status)
	}
}

func TestParseVersion(t *testing.T) {
	if _, err := parseVersion(nil); err == nil {
		t.Fatal("expected error for empty output")
	}
	if _, err := parseVersion([]byte("garbage\n")); err == nil {
		t.Fatal("expected error for unrecognized output")
	}
	got, err := parseVersion([]byte("ffprobe version n7.0 Copyright\n"))
	if err != nil || got != "n7.0" {
		t.Fatalf("parseVersion = %q, %v", got, err)
	}
}
