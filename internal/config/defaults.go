package config

const (
	defaultConfigPath          = "~/.config/ffkit/config.toml"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultVerbosity           = 24
	defaultProfile             = "high"
	defaultPreset              = "veryfast"
	defaultAudioLanguage       = "eng"
	defaultMaxConcurrent       = 2
	defaultTargetCodec         = "hevc"
	defaultOriginalsDir        = "original_files"
	defaultLogDir              = "~/.local/share/ffkit/logs"
	defaultStateDir            = "~/.local/share/ffkit"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultChannels            = "stereo"
	historyFileName            = "history.db"
	maxVerbosity               = 56
	maxConcurrentUpperBoundary = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tools: Tools{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Encoding: Encoding{
			Verbosity:      defaultVerbosity,
			DefaultProfile: defaultProfile,
			DefaultPreset:  defaultPreset,
			AudioLanguage:  defaultAudioLanguage,
		},
		Batch: Batch{
			MaxConcurrent: defaultMaxConcurrent,
			TargetCodec:   defaultTargetCodec,
			OriginalsDir:  defaultOriginalsDir,
		},
		Quality: Quality{
			Levels: []QualityLevel{
				{MinBPP: 0, CRF: 23, AudioKbps: 96, Channels: defaultChannels},
				{MinBPP: 0.08, CRF: 21, AudioKbps: 96, Channels: defaultChannels},
				{MinBPP: 0.11, CRF: 20, AudioKbps: 128, Channels: defaultChannels},
			},
			Default: QualityLevel{CRF: 23, AudioKbps: 96, Channels: defaultChannels},
		},
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
