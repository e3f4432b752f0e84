package generation

import (
	"context"
	"fmt"

	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/studio"
)

// DefaultBeatDuration applies to beats with no narration, no movie and no
// explicit duration.
const DefaultBeatDuration = 1.0

// Prober reports media durations in seconds.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// ResolveDurations sets every beat's Duration and cumulative StartAt for the
// narration in lang. Precedence: the script's explicit duration, the probed
// narration clip, the probed movie clip, DefaultBeatDuration.
func ResolveDurations(ctx context.Context, state *studio.State, lang string, prober Prober) error {
	ctx = services.WithStage(ctx, "durations")
	s := state.Script
	start := 0.0
	for i := range state.Beats {
		beat := &state.Beats[i]
		duration, err := beatDuration(ctx, s, i, *beat, lang, prober)
		if err != nil {
			return err
		}
		beat.Duration = &duration
		beat.StartAt = start
		start += duration
	}
	return nil
}

func beatDuration(ctx context.Context, s *script.Script, index int, beat studio.Beat, lang string, prober Prober) (float64, error) {
	if explicit := s.Beats[index].Duration; explicit != nil {
		if *explicit <= 0 {
			return 0, services.Wrap(services.ErrPrecondition, "durations", "resolve", fmt.Sprintf("beat %q has non-positive duration", beat.Key), nil)
		}
		return *explicit, nil
	}
	for _, path := range []string{beat.AudioFor(lang, s.Lang), beat.MovieFile} {
		if path == "" {
			continue
		}
		if prober == nil {
			return 0, services.Wrap(services.ErrConfiguration, "durations", "probe", "no duration prober configured", nil)
		}
		duration, err := prober.ProbeDuration(ctx, path)
		if err != nil {
			return 0, services.Wrap(services.ErrNetwork, "durations", "probe", path, err)
		}
		return duration, nil
	}
	return DefaultBeatDuration, nil
}
