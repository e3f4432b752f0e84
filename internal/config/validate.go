package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateComposition(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"network.download_timeout": c.Network.DownloadTimeout,
	}); err != nil {
		return err
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateComposition() error {
	if err := ensurePositiveMap(map[string]int{
		"composition.width":  c.Composition.Width,
		"composition.height": c.Composition.Height,
		"composition.fps":    c.Composition.FPS,
	}); err != nil {
		return err
	}
	if c.Composition.Width%2 != 0 || c.Composition.Height%2 != 0 {
		return errors.New("composition.width and composition.height must be even for yuv420p output")
	}
	if c.Composition.EndGuardSeconds <= 0 {
		return errors.New("composition.end_guard_seconds must be positive")
	}
	switch c.Composition.SingleBeatConcat {
	case SingleBeatConcatAlways, SingleBeatConcatBypass:
	default:
		return fmt.Errorf("composition.single_beat_concat must be %q or %q", SingleBeatConcatAlways, SingleBeatConcatBypass)
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.IntroPadding < 0 {
		return errors.New("audio.intro_padding must be >= 0")
	}
	if c.Audio.OutroPadding < 0 {
		return errors.New("audio.outro_padding must be >= 0")
	}
	if c.Audio.AudioVolume < 0 {
		return errors.New("audio.audio_volume must be >= 0")
	}
	if c.Audio.BGMVolume < 0 {
		return errors.New("audio.bgm_volume must be >= 0")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if err := ensurePositiveMap(map[string]int{
		"generation.audio_concurrency": c.Generation.AudioConcurrency,
		"generation.image_concurrency": c.Generation.ImageConcurrency,
		"generation.movie_concurrency": c.Generation.MovieConcurrency,
	}); err != nil {
		return err
	}
	if len(c.Generation.Languages) == 0 {
		return errors.New("generation.languages must include at least one language")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
