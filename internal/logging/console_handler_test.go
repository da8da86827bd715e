package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestConsoleColorOnlyWhenEnabled(t *testing.T) {
	level := new(slog.LevelVar)

	var plain bytes.Buffer
	slog.New(newPrettyHandler(&plain, level, false, false)).Warn("careful")
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("unexpected escape codes: %q", plain.String())
	}

	var colored bytes.Buffer
	slog.New(newPrettyHandler(&colored, level, false, true)).Warn("careful", String(FieldComponent, "batch"))
	out := colored.String()
	if !strings.Contains(out, ansiYellow+"WARN"+ansiReset) || !strings.Contains(out, ansiCyan+"batch:"+ansiReset) {
		t.Fatalf("expected colored level and component, got %q", out)
	}
}

func TestColorEnabledIgnoresNonTerminals(t *testing.T) {
	var buf bytes.Buffer
	if colorEnabled(&buf) {
		t.Fatal("buffers are never terminals")
	}
	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if colorEnabled(f) {
		t.Fatal("regular files are never terminals")
	}
}
