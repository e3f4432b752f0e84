package pipeline

import (
	"context"
	"fmt"

	"mulmocast/internal/assemble"
	"mulmocast/internal/audiomix"
	"mulmocast/internal/generation"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/studio"
)

// Graph rebuilds the movie plan for the first requested language from the
// saved studio document. Nothing is generated or encoded; durations are only
// probed when the document does not already carry them for that language.
func (r *Runner) Graph(ctx context.Context, opts Options) (assemble.Plan, error) {
	ctx = services.WithStage(ctx, "graph")
	s, err := loadScript(opts.ScriptPath)
	if err != nil {
		return assemble.Plan{}, err
	}
	langs, err := resolveLanguages(s, opts.Languages, r.cfg.Generation.Languages)
	if err != nil {
		return assemble.Plan{}, err
	}
	layout := studio.Layout{Root: r.cfg.Paths.OutputDir, Name: script.Name(opts.ScriptPath)}
	state, err := studio.Load(layout.StudioPath())
	if err != nil {
		return assemble.Plan{}, err
	}
	if len(state.Beats) != len(s.Beats) {
		return assemble.Plan{}, services.Wrap(services.ErrPrecondition, "graph", "load studio",
			fmt.Sprintf("%s has %d beats but the script has %d; rerun the movie first", layout.StudioPath(), len(state.Beats), len(s.Beats)), nil)
	}
	state.Script = s

	rn := r.newRun("", opts, r.base, s, layout, langs, nil)
	lang := langs[0]
	if lang != rn.primary || !durationsResolved(state) {
		if err := generation.ResolveDurations(ctx, state, lang, rn.prober); err != nil {
			return assemble.Plan{}, err
		}
	}

	suffix := rn.suffix(lang)
	audio := assemble.AudioSource{NarrationPath: layout.NarrationPath(suffix)}
	if music := rn.music(); music != "" {
		if err := audiomix.CheckMusic(music); err != nil {
			return assemble.Plan{}, err
		}
		in := rn.mixInput(audio.NarrationPath, music)
		if opts.EmbedBGM {
			mix := audiomix.Build(in, state.TotalDuration())
			audio = assemble.AudioSource{Mix: &mix}
		} else {
			audio = assemble.AudioSource{
				NarrationPath: layout.MixedAudioPath(suffix),
				IntroPadding:  in.IntroPadding,
				OutroPadding:  in.OutroPadding,
			}
		}
	}
	return assemble.New(rn.assembleOptions(), r.registry).Build(state, audio)
}

func durationsResolved(state *studio.State) bool {
	for _, beat := range state.Beats {
		if beat.Duration == nil {
			return false
		}
	}
	return true
}
