package config

import (
	"fmt"
	"os"
	"strings"

	"mulmocast/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeComposition()
	if err := c.normalizeAudio(); err != nil {
		return err
	}
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	c.normalizeNetwork()
	c.normalizeEncoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeComposition() {
	c.Composition.SingleBeatConcat = strings.ToLower(strings.TrimSpace(c.Composition.SingleBeatConcat))
	if c.Composition.SingleBeatConcat == "" {
		c.Composition.SingleBeatConcat = defaultSingleBeatConcat
	}
	if c.Composition.FPS == 0 {
		c.Composition.FPS = defaultFPS
	}
}

func (c *Config) normalizeAudio() error {
	c.Audio.BGM = strings.TrimSpace(c.Audio.BGM)
	if c.Audio.BGM == "" {
		if value, ok := os.LookupEnv("MULMO_BGM"); ok {
			c.Audio.BGM = strings.TrimSpace(value)
		}
	}
	if c.Audio.BGM != "" && !isRemote(c.Audio.BGM) {
		var err error
		if c.Audio.BGM, err = expandPath(c.Audio.BGM); err != nil {
			return fmt.Errorf("audio.bgm: %w", err)
		}
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	return nil
}

func (c *Config) normalizeGeneration() error {
	langs, err := language.NormalizeList(c.Generation.Languages)
	if err != nil {
		return fmt.Errorf("generation.languages: %w", err)
	}
	if len(langs) == 0 {
		langs = []string{defaultLanguage}
	}
	c.Generation.Languages = langs
	c.Generation.TTSCommand = trimArgs(c.Generation.TTSCommand)
	c.Generation.RenderCommand = trimArgs(c.Generation.RenderCommand)
	c.Generation.MovieCommand = trimArgs(c.Generation.MovieCommand)
	return nil
}

func (c *Config) normalizeNetwork() {
	if c.Network.DownloadTimeout <= 0 {
		c.Network.DownloadTimeout = defaultDownloadTimeout
	}
	c.Network.UserAgent = strings.TrimSpace(c.Network.UserAgent)
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeEncoder() {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" {
			c.Encoder.FFmpegBinary = strings.TrimSpace(value)
		} else {
			c.Encoder.FFmpegBinary = defaultFFmpegBinary
		}
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if c.Encoder.FFprobeBinary == "" {
		if value, ok := os.LookupEnv("FFPROBE_PATH"); ok && strings.TrimSpace(value) != "" {
			c.Encoder.FFprobeBinary = strings.TrimSpace(value)
		} else {
			c.Encoder.FFprobeBinary = defaultFFprobeBinary
		}
	}
	if strings.TrimSpace(c.Encoder.VideoCodec) == "" {
		c.Encoder.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Encoder.AudioCodec) == "" {
		c.Encoder.AudioCodec = defaultAudioCodec
	}
	if strings.TrimSpace(c.Encoder.AudioBitrate) == "" {
		c.Encoder.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isRemote(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
