// Package studio holds the mutable per-run record of resolved beat artifacts
// and timing, mirrored 1:1 with the script's beats.
package studio

import (
	"encoding/json"
	"fmt"
	"os"

	"mulmocast/internal/fileutil"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
)

// Beat is the output record for one script beat.
type Beat struct {
	Key       string `json:"key"`
	ImageFile string `json:"imageFile,omitempty"`
	MovieFile string `json:"movieFile,omitempty"`
	AudioFile string `json:"audioFile,omitempty"`
	// AudioFiles holds narration per language for multi-lingual runs.
	AudioFiles map[string]string `json:"audioFiles,omitempty"`
	Duration   *float64          `json:"duration,omitempty"`
	StartAt    float64           `json:"startAt"`
}

// State is owned by exactly one pipeline run.
type State struct {
	Script *script.Script `json:"script"`
	Beats  []Beat         `json:"beats"`
}

// New builds an empty state mirroring s.
func New(s *script.Script) *State {
	state := &State{Script: s, Beats: make([]Beat, len(s.Beats))}
	for i := range s.Beats {
		state.Beats[i].Key = s.BeatKey(i)
	}
	return state
}

// TotalDuration sums resolved beat durations.
func (s *State) TotalDuration() float64 {
	total := 0.0
	for _, beat := range s.Beats {
		if beat.Duration != nil {
			total += *beat.Duration
		}
	}
	return total
}

// AudioFor returns the narration file for lang, falling back to AudioFile for
// the script language.
func (b Beat) AudioFor(lang, scriptLang string) string {
	if path, ok := b.AudioFiles[lang]; ok && path != "" {
		return path
	}
	if lang == "" || lang == scriptLang {
		return b.AudioFile
	}
	return ""
}

// Save writes the studio document atomically.
func Save(path string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode studio: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write studio: %w", err)
	}
	return nil
}

// Load reads a studio document and checks it still mirrors its script.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "studio", "load", path, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "studio", "load", "decode "+path, err)
	}
	if state.Script == nil {
		return nil, services.Wrap(services.ErrPrecondition, "studio", "load", "document has no script", nil)
	}
	if len(state.Beats) != len(state.Script.Beats) {
		return nil, services.Wrap(services.ErrPrecondition, "studio", "load",
			fmt.Sprintf("%d studio beats for %d script beats", len(state.Beats), len(state.Script.Beats)), nil)
	}
	return &state, nil
}
