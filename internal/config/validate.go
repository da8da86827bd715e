package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	validPresets  = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow", "placebo"}
	validProfiles = []string{"low", "medium", "high"}
	validChannels = []string{"mono", "stereo"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEncoding() error {
	if c.Encoding.Verbosity < 0 || c.Encoding.Verbosity > maxVerbosity {
		return fmt.Errorf("encoding.verbosity must be between 0 and %d", maxVerbosity)
	}
	if !slices.Contains(validProfiles, c.Encoding.DefaultProfile) {
		return fmt.Errorf("encoding.default_profile %q is not one of %v", c.Encoding.DefaultProfile, validProfiles)
	}
	if !slices.Contains(validPresets, c.Encoding.DefaultPreset) {
		return fmt.Errorf("encoding.default_preset %q is not a known x264/x265 preset", c.Encoding.DefaultPreset)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MaxConcurrent > maxConcurrentUpperBoundary {
		return fmt.Errorf("batch.max_concurrent must be at most %d", maxConcurrentUpperBoundary)
	}
	return nil
}

func (c *Config) validateQuality() error {
	levels := c.Quality.Levels
	if len(levels) == 0 {
		return errors.New("quality.levels must contain at least one level")
	}
	if levels[0].MinBPP != 0 {
		return errors.New("quality.levels[0].min_bpp must be 0")
	}
	for i, level := range levels {
		if i > 0 && level.MinBPP <= levels[i-1].MinBPP {
			return fmt.Errorf("quality.levels[%d].min_bpp must be greater than the previous level", i)
		}
		if err := validateLevel(fmt.Sprintf("quality.levels[%d]", i), level); err != nil {
			return err
		}
	}
	return validateLevel("quality.default", c.Quality.Default)
}

func validateLevel(name string, level QualityLevel) error {
	if level.CRF < 0 || level.CRF > 51 {
		return fmt.Errorf("%s.crf must be between 0 and 51", name)
	}
	if level.AudioKbps <= 0 {
		return fmt.Errorf("%s.audio_kbps must be positive", name)
	}
	if !slices.Contains(validChannels, level.Channels) {
		return fmt.Errorf("%s.channels must be mono or stereo", name)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
