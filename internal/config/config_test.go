package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ffkit/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "ffkit", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "ffkit", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "ffkit", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if cfg.Encoding.Verbosity != 24 {
		t.Fatalf("unexpected verbosity %d", cfg.Encoding.Verbosity)
	}
	if cfg.Batch.TargetCodec != "hevc" || cfg.Batch.MaxConcurrent != 2 {
		t.Fatalf("unexpected batch defaults: %+v", cfg.Batch)
	}
	if len(cfg.Quality.Levels) != 3 {
		t.Fatalf("expected default quality levels, got %+v", cfg.Quality.Levels)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadProjectFileWhenHomeConfigMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile("ffkit.toml", []byte("[batch]\nmax_concurrent = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "ffkit.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Batch.MaxConcurrent != 5 {
		t.Fatalf("expected max_concurrent 5, got %d", cfg.Batch.MaxConcurrent)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ffkit.toml")

	type level struct {
		MinBPP    float64 `toml:"min_bpp"`
		CRF       int     `toml:"crf"`
		AudioKbps int     `toml:"audio_kbps"`
		Channels  string  `toml:"channels"`
	}
	type payload struct {
		Tools struct {
			FFmpegBinary string `toml:"ffmpeg_binary"`
		} `toml:"tools"`
		Encoding struct {
			DefaultPreset string `toml:"default_preset"`
		} `toml:"encoding"`
		Batch struct {
			OriginalsDir string `toml:"originals_dir"`
		} `toml:"batch"`
		Quality struct {
			Levels []level `toml:"levels"`
		} `toml:"quality"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Tools.FFmpegBinary = " /opt/ffmpeg/bin/ffmpeg "
	custom.Encoding.DefaultPreset = "SLOW"
	custom.Batch.OriginalsDir = "sources"
	custom.Quality.Levels = []level{
		{MinBPP: 0, CRF: 26, AudioKbps: 64, Channels: "Mono"},
		{MinBPP: 0.1, CRF: 22, AudioKbps: 128},
	}
	custom.Logging.Format = "JSON"
	custom.Logging.Level = "warning"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected trimmed ffmpeg binary, got %q", cfg.FFmpegBinary())
	}
	if cfg.Encoding.DefaultPreset != "slow" {
		t.Fatalf("expected lowercased preset, got %q", cfg.Encoding.DefaultPreset)
	}
	if got := cfg.OriginalsDirFor("/media/shows"); got != "/media/shows/sources" {
		t.Fatalf("unexpected originals dir %q", got)
	}
	if len(cfg.Quality.Levels) != 2 {
		t.Fatalf("configured levels should replace defaults, got %+v", cfg.Quality.Levels)
	}
	if cfg.Quality.Levels[0].Channels != "mono" || cfg.Quality.Levels[1].Channels != "stereo" {
		t.Fatalf("unexpected channels %+v", cfg.Quality.Levels)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ffkit.toml")
	if err := os.WriteFile(configPath, []byte("[batch]\nmax_concurrency = 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "max_concurrency") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestOriginalsDirAbsolute(t *testing.T) {
	cfg := config.Default()
	cfg.Batch.OriginalsDir = "/archive/originals"
	if got := cfg.OriginalsDirFor("/media/shows"); got != "/archive/originals/shows" {
		t.Fatalf("unexpected originals dir %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if len(cfg.Quality.Levels) != 3 || cfg.Quality.Levels[2].MinBPP != 0.11 {
		t.Fatalf("unexpected sample levels %+v", cfg.Quality.Levels)
	}
	if !strings.Contains(cfg.Paths.StateDir, "ffkit") {
		t.Fatalf("expected state dir to contain ffkit, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"verbosity", func(c *config.Config) { c.Encoding.Verbosity = 99 }},
		{"profile", func(c *config.Config) { c.Encoding.DefaultProfile = "ultra" }},
		{"preset", func(c *config.Config) { c.Encoding.DefaultPreset = "warp" }},
		{"concurrency", func(c *config.Config) { c.Batch.MaxConcurrent = 1000 }},
		{"no levels", func(c *config.Config) { c.Quality.Levels = nil }},
		{"first threshold", func(c *config.Config) { c.Quality.Levels[0].MinBPP = 0.01 }},
		{"unordered", func(c *config.Config) { c.Quality.Levels[2].MinBPP = 0.05 }},
		{"crf", func(c *config.Config) { c.Quality.Levels[1].CRF = 60 }},
		{"audio", func(c *config.Config) { c.Quality.Default.AudioKbps = 0 }},
		{"channels", func(c *config.Config) { c.Quality.Default.Channels = "5.1" }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
