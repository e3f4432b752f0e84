package generation

import (
	"context"
	"errors"
	"testing"

	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/studio"
)

type fakeProber map[string]float64

func (f fakeProber) ProbeDuration(_ context.Context, path string) (float64, error) {
	if d, ok := f[path]; ok {
		return d, nil
	}
	return 0, errors.New("no such media")
}

func TestResolveDurations(t *testing.T) {
	explicit := 2.5
	s := &script.Script{Lang: "en", Beats: []script.Beat{
		{Text: "a", Duration: &explicit},
		{Text: "b"},
		{Text: "c"},
		{Text: "d"},
	}}
	state := studio.New(s)
	state.Beats[0].AudioFile = "a.mp3"
	state.Beats[1].AudioFile = "b.mp3"
	state.Beats[2].MovieFile = "c.mp4"

	prober := fakeProber{"a.mp3": 9, "b.mp3": 3.25, "c.mp4": 4}
	if err := ResolveDurations(context.Background(), state, "", prober); err != nil {
		t.Fatalf("ResolveDurations failed: %v", err)
	}
	wantDur := []float64{2.5, 3.25, 4, DefaultBeatDuration}
	wantStart := []float64{0, 2.5, 5.75, 9.75}
	for i, beat := range state.Beats {
		if beat.Duration == nil || *beat.Duration != wantDur[i] {
			t.Fatalf("beat %d duration = %v, want %v", i, beat.Duration, wantDur[i])
		}
		if beat.StartAt != wantStart[i] {
			t.Fatalf("beat %d startAt = %v, want %v", i, beat.StartAt, wantStart[i])
		}
	}
	if total := state.TotalDuration(); total != 10.75 {
		t.Fatalf("total = %v", total)
	}
}

func TestResolveDurationsUsesLanguageClip(t *testing.T) {
	s := &script.Script{Lang: "en", Beats: []script.Beat{{Text: "a"}}}
	state := studio.New(s)
	state.Beats[0].AudioFile = "en.mp3"
	state.Beats[0].AudioFiles = map[string]string{"en": "en.mp3", "ja": "ja.mp3"}

	if err := ResolveDurations(context.Background(), state, "ja", fakeProber{"en.mp3": 2, "ja.mp3": 3}); err != nil {
		t.Fatalf("ResolveDurations failed: %v", err)
	}
	if *state.Beats[0].Duration != 3 {
		t.Fatalf("expected ja clip duration, got %v", *state.Beats[0].Duration)
	}
}

func TestResolveDurationsProbeFailure(t *testing.T) {
	s := &script.Script{Beats: []script.Beat{{Text: "a"}}}
	state := studio.New(s)
	state.Beats[0].AudioFile = "missing.mp3"

	err := ResolveDurations(context.Background(), state, "", fakeProber{})
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}
