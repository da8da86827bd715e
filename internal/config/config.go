package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tools names the external binaries ffkit drives.
type Tools struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Encoding contains defaults for single-file conversions.
type Encoding struct {
	Verbosity      int    `toml:"verbosity"`
	DefaultProfile string `toml:"default_profile"`
	DefaultPreset  string `toml:"default_preset"`
	Overwrite      bool   `toml:"overwrite"`
	// AudioLanguage picks the audio stream kept by profile conversions.
	AudioLanguage string `toml:"audio_language"`
}

// Batch contains configuration for directory-wide conversions.
type Batch struct {
	MaxConcurrent int    `toml:"max_concurrent"`
	TargetCodec   string `toml:"target_codec"`
	// OriginalsDir is where source files are moved before conversion. A
	// relative value is resolved inside each converted directory.
	OriginalsDir    string `toml:"originals_dir"`
	DeleteOriginals bool   `toml:"delete_originals"`
	// DeleteSources removes concat inputs once the joined file exists.
	DeleteSources bool `toml:"delete_sources"`
}

// QualityLevel is the crf and audio settings used for sources whose
// bits-per-pixel exceeds MinBPP.
type QualityLevel struct {
	MinBPP    float64 `toml:"min_bpp"`
	CRF       int     `toml:"crf"`
	AudioKbps int     `toml:"audio_kbps"`
	Channels  string  `toml:"channels"`
}

// Quality maps source bits-per-pixel to conversion settings.
type Quality struct {
	Levels  []QualityLevel `toml:"levels"`
	Default QualityLevel   `toml:"default"`
}

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ffkit.
//
// Configuration sections by subsystem:
//   - Tools: ffmpeg and ffprobe binaries
//   - Encoding: single-file conversion defaults
//   - Batch: directory conversion and concat behaviour
//   - Quality: bits-per-pixel to crf/audio mapping
//   - Paths: log and state directories
//   - Logging: log format, level, and retention
type Config struct {
	Tools    Tools    `toml:"tools"`
	Encoding Encoding `toml:"encoding"`
	Batch    Batch    `toml:"batch"`
	Quality  Quality  `toml:"quality"`
	Paths    Paths    `toml:"paths"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Array tables append to existing slices, so configured levels
		// replace the defaults instead of extending them.
		defaultLevels := cfg.Quality.Levels
		cfg.Quality.Levels = nil

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Quality.Levels) == 0 {
			cfg.Quality.Levels = defaultLevels
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ffkit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for encoding.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFmpegBinary) == "" {
		return defaultFFmpegBinary
	}
	return c.Tools.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for inspection.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFprobeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.Tools.FFprobeBinary
}

// HistoryPath is the job history database inside the state directory.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, historyFileName)
}

// OriginalsDirFor resolves where originals from dir are moved before
// conversion. An absolute originals_dir gets one subdirectory per source
// directory so separate batches never share a folder.
func (c *Config) OriginalsDirFor(dir string) string {
	if filepath.IsAbs(c.Batch.OriginalsDir) {
		return filepath.Join(c.Batch.OriginalsDir, filepath.Base(filepath.Clean(dir)))
	}
	return filepath.Join(dir, c.Batch.OriginalsDir)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
