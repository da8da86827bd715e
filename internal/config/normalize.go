package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeEncoding()
	c.normalizeBatch()
	c.normalizeQuality()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	if c.Tools.FFmpegBinary == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
	if c.Tools.FFprobeBinary == "" {
		c.Tools.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeEncoding() {
	c.Encoding.DefaultProfile = strings.ToLower(strings.TrimSpace(c.Encoding.DefaultProfile))
	if c.Encoding.DefaultProfile == "" {
		c.Encoding.DefaultProfile = defaultProfile
	}
	c.Encoding.DefaultPreset = strings.ToLower(strings.TrimSpace(c.Encoding.DefaultPreset))
	if c.Encoding.DefaultPreset == "" {
		c.Encoding.DefaultPreset = defaultPreset
	}
	c.Encoding.AudioLanguage = strings.ToLower(strings.TrimSpace(c.Encoding.AudioLanguage))
}

func (c *Config) normalizeBatch() {
	if c.Batch.MaxConcurrent <= 0 {
		c.Batch.MaxConcurrent = defaultMaxConcurrent
	}
	c.Batch.TargetCodec = strings.ToLower(strings.TrimSpace(c.Batch.TargetCodec))
	if c.Batch.TargetCodec == "" {
		c.Batch.TargetCodec = defaultTargetCodec
	}
	c.Batch.OriginalsDir = strings.TrimSpace(c.Batch.OriginalsDir)
	if c.Batch.OriginalsDir == "" {
		c.Batch.OriginalsDir = defaultOriginalsDir
	}
	if strings.HasPrefix(c.Batch.OriginalsDir, "~") {
		if expanded, err := expandPath(c.Batch.OriginalsDir); err == nil {
			c.Batch.OriginalsDir = expanded
		}
	}
}

func (c *Config) normalizeQuality() {
	for i := range c.Quality.Levels {
		c.Quality.Levels[i].Channels = normalizeChannels(c.Quality.Levels[i].Channels)
	}
	c.Quality.Default.Channels = normalizeChannels(c.Quality.Default.Channels)
}

func normalizeChannels(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return defaultChannels
	}
	return value
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "":
		c.Logging.Level = defaultLogLevel
	case "warning":
		c.Logging.Level = "warn"
	default:
		c.Logging.Level = level
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
