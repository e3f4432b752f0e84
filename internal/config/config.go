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

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Composition contains the timeline settings shared by every movie.
type Composition struct {
	Width           int     `toml:"width"`
	Height          int     `toml:"height"`
	FPS             int     `toml:"fps"`
	EndGuardSeconds float64 `toml:"end_guard_seconds"`
	// SingleBeatConcat controls whether a one-beat timeline still passes
	// through the concat stage: "always" or "bypass".
	SingleBeatConcat string `toml:"single_beat_concat"`
}

// Audio contains narration and background music mixing defaults. Script-level
// values take precedence.
type Audio struct {
	BGM          string  `toml:"bgm"`
	IntroPadding float64 `toml:"intro_padding"`
	OutroPadding float64 `toml:"outro_padding"`
	AudioVolume  float64 `toml:"audio_volume"`
	BGMVolume    float64 `toml:"bgm_volume"`
	SampleRate   int     `toml:"sample_rate"`
}

// Generation contains fan-out limits and external generator commands.
type Generation struct {
	AudioConcurrency int      `toml:"audio_concurrency"`
	ImageConcurrency int      `toml:"image_concurrency"`
	MovieConcurrency int      `toml:"movie_concurrency"`
	Languages        []string `toml:"languages"`
	Backup           bool     `toml:"backup"`
	TTSCommand       []string `toml:"tts_command"`
	RenderCommand    []string `toml:"render_command"`
	MovieCommand     []string `toml:"movie_command"`
}

// Network contains settings for remote media downloads.
type Network struct {
	DownloadTimeout int    `toml:"download_timeout"`
	UserAgent       string `toml:"user_agent"`
}

// Encoder contains the external encoder settings.
type Encoder struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	VideoCodec    string `toml:"video_codec"`
	AudioCodec    string `toml:"audio_codec"`
	AudioBitrate  string `toml:"audio_bitrate"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mulmo.
//
// Configuration sections by subsystem:
//   - Paths: output, log, and state directories
//   - Composition: canvas, frame rate, and concat policy
//   - Audio: narration padding and background music mixing
//   - Generation: concurrency ceilings and generator commands
//   - Network: remote media download behaviour
//   - Encoder: ffmpeg/ffprobe binaries and codecs
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Composition Composition `toml:"composition"`
	Audio       Audio       `toml:"audio"`
	Generation  Generation  `toml:"generation"`
	Network     Network     `toml:"network"`
	Encoder     Encoder     `toml:"encoder"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mulmo/config.toml")
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

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mulmo.toml")
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

// EnsureDirectories creates the directories a pipeline run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for composition.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Encoder.FFmpegBinary) == "" {
		return defaultFFmpegBinary
	}
	return c.Encoder.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for duration probing.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Encoder.FFprobeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.Encoder.FFprobeBinary
}

// JournalPath returns the SQLite database that records progress events.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
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

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mulmo")
	}
	return defaultStateDirFallback
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
