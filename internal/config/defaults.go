package config

const (
	defaultOutputDir        = "output"
	defaultLogDir           = "~/.local/share/mulmo/logs"
	defaultStateDirFallback = "~/.local/state/mulmo"
	defaultWidth            = 1280
	defaultHeight           = 720
	defaultFPS              = 30
	defaultEndGuardSeconds  = 10
	defaultSingleBeatConcat = SingleBeatConcatAlways
	defaultIntroPadding     = 1.0
	defaultOutroPadding     = 1.0
	defaultAudioVolume      = 1.0
	defaultBGMVolume        = 0.2
	defaultSampleRate       = 44100
	defaultAudioConcurrency = 8
	defaultImageConcurrency = 4
	defaultMovieConcurrency = 2
	defaultDownloadTimeout  = 30
	defaultUserAgent        = "mulmo/dev"
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultVideoCodec       = "libx264"
	defaultAudioCodec       = "aac"
	defaultAudioBitrate     = "128k"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14
	defaultLanguage         = "en"
)

// Single-beat concat policies.
const (
	SingleBeatConcatAlways = "always"
	SingleBeatConcatBypass = "bypass"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir(),
		},
		Composition: Composition{
			Width:            defaultWidth,
			Height:           defaultHeight,
			FPS:              defaultFPS,
			EndGuardSeconds:  defaultEndGuardSeconds,
			SingleBeatConcat: defaultSingleBeatConcat,
		},
		Audio: Audio{
			IntroPadding: defaultIntroPadding,
			OutroPadding: defaultOutroPadding,
			AudioVolume:  defaultAudioVolume,
			BGMVolume:    defaultBGMVolume,
			SampleRate:   defaultSampleRate,
		},
		Generation: Generation{
			AudioConcurrency: defaultAudioConcurrency,
			ImageConcurrency: defaultImageConcurrency,
			MovieConcurrency: defaultMovieConcurrency,
			Languages:        []string{defaultLanguage},
		},
		Network: Network{
			DownloadTimeout: defaultDownloadTimeout,
			UserAgent:       defaultUserAgent,
		},
		Encoder: Encoder{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			VideoCodec:    defaultVideoCodec,
			AudioCodec:    defaultAudioCodec,
			AudioBitrate:  defaultAudioBitrate,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
