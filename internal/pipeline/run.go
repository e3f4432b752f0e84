package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mulmocast/internal/artifact"
	"mulmocast/internal/assemble"
	"mulmocast/internal/audiomix"
	"mulmocast/internal/encoder"
	"mulmocast/internal/fetch"
	"mulmocast/internal/generation"
	"mulmocast/internal/logging"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/session"
	"mulmocast/internal/studio"
	"mulmocast/internal/timeline"
)

// run is the state of one Runner.Run invocation.
type run struct {
	*Runner
	id      string
	opts    Options
	logger  *slog.Logger
	encoder Encoder
	tracker *session.Tracker
	script  *script.Script
	layout  studio.Layout
	baseDir string
	langs   []string
	// scriptLang is the language narrated into un-suffixed files.
	scriptLang string
	// primary is the language reported as the run's output.
	primary string
}

func (r *Runner) newRun(id string, opts Options, logger *slog.Logger, s *script.Script, layout studio.Layout, langs []string, tracker *session.Tracker) *run {
	enc := r.encoder
	if enc == nil {
		enc = encoder.NewRunner(r.cfg.FFmpegBinary(), logger)
	}
	scriptLang := strings.TrimSpace(s.Lang)
	if scriptLang == "" {
		scriptLang = langs[0]
	}
	primary := langs[0]
	for _, lang := range langs {
		if lang == scriptLang {
			primary = lang
			break
		}
	}
	baseDir := filepath.Dir(opts.ScriptPath)
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return &run{
		Runner:     r,
		id:         id,
		opts:       opts,
		logger:     logger,
		encoder:    enc,
		tracker:    tracker,
		script:     s,
		layout:     layout,
		baseDir:    baseDir,
		langs:      langs,
		scriptLang: scriptLang,
		primary:    primary,
	}
}

func (rn *run) execute(ctx context.Context) (Result, error) {
	result := Result{StudioPath: rn.layout.StudioPath(), Movies: make(map[string]string, len(rn.langs))}

	music := rn.music()
	if music != "" {
		if err := audiomix.CheckMusic(music); err != nil {
			return result, err
		}
	}

	state := studio.New(rn.script)
	genErr := rn.generate(ctx, state)
	if err := studio.Save(rn.layout.StudioPath(), state); err != nil {
		if genErr != nil {
			return result, genErr
		}
		return result, services.Wrap(services.ErrGeneration, stageName, "save studio", rn.layout.StudioPath(), err)
	}
	if genErr != nil {
		return result, genErr
	}

	for _, lang := range rn.langs {
		movie, rendered, err := rn.renderLanguage(ctx, state, lang, music)
		if err != nil {
			return result, err
		}
		result.Movies[lang] = movie
		if lang == rn.primary {
			result.Duration = rendered.TotalDuration()
			if err := studio.Save(rn.layout.StudioPath(), rendered); err != nil {
				return result, services.Wrap(services.ErrGeneration, stageName, "save studio", rn.layout.StudioPath(), err)
			}
		}
	}
	return result, nil
}

// generate produces every beat asset. Composition only starts once all
// three batches have finished.
func (rn *run) generate(ctx context.Context, state *studio.State) error {
	orch := generation.New(artifact.NewCache(rn.logger), rn.tracker, rn.registry, rn.generatorSet(), rn.layout, rn.logger)
	gen := rn.cfg.Generation
	width, height := rn.canvas()
	opts := generation.Options{
		Force:   rn.opts.Force,
		Backup:  gen.Backup,
		Width:   width,
		Height:  height,
		BaseDir: rn.baseDir,
	}

	opts.Concurrency = gen.ImageConcurrency
	if err := orch.GenerateImages(ctx, state, opts); err != nil {
		return err
	}
	opts.Concurrency = gen.MovieConcurrency
	if err := orch.GenerateMovies(ctx, state, opts); err != nil {
		return err
	}
	opts.Concurrency = gen.AudioConcurrency
	return orch.GenerateAudio(ctx, state, rn.langs, opts)
}

func (rn *run) generatorSet() generation.Generators {
	if rn.generators != nil {
		return *rn.generators
	}
	client := &fetch.Client{
		UserAgent: rn.cfg.Network.UserAgent,
		Timeout:   time.Duration(rn.cfg.Network.DownloadTimeout) * time.Second,
	}
	return generation.NewCommandGenerator(rn.cfg, rn.logger).Generators(client)
}

// renderLanguage resolves durations against lang's narration, renders the
// narration track and optional BGM mix, then encodes the movie.
func (rn *run) renderLanguage(ctx context.Context, base *studio.State, lang, music string) (string, *studio.State, error) {
	ctx = services.WithLanguage(services.WithStage(ctx, "compose"), lang)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(rn.logger, "pipeline"))
	suffix := rn.suffix(lang)

	state := cloneState(base)
	if err := generation.ResolveDurations(ctx, state, lang, rn.prober); err != nil {
		return "", nil, err
	}

	narration, err := audiomix.BuildNarration(narrationBeats(state, lang), rn.cfg.Audio.SampleRate)
	if err != nil {
		return "", nil, err
	}
	narrationPath := rn.layout.NarrationPath(suffix)
	if err := rn.encode(ctx, "narration", narration.Args(narrationPath, "", rn.cfg.Encoder.AudioBitrate), narration.Duration); err != nil {
		return "", nil, err
	}

	audio := assemble.AudioSource{NarrationPath: narrationPath}
	if music != "" {
		mix, err := audiomix.NewMixer(rn.prober, rn.logger).Mix(ctx, rn.mixInput(narrationPath, music))
		if err != nil {
			return "", nil, err
		}
		if rn.opts.EmbedBGM {
			audio = assemble.AudioSource{Mix: &mix}
		} else {
			mixed := rn.layout.MixedAudioPath(suffix)
			if err := rn.encode(ctx, "bgm", mix.Args(mixed, "", rn.cfg.Encoder.AudioBitrate), mix.TotalDuration); err != nil {
				return "", nil, err
			}
			audio = assemble.AudioSource{NarrationPath: mixed, IntroPadding: mix.IntroPadding, OutroPadding: mix.OutroPadding}
		}
	}

	plan, err := assemble.New(rn.assembleOptions(), rn.registry).Build(state, audio)
	if err != nil {
		return "", nil, err
	}
	output := rn.layout.MoviePath(suffix)
	if err := rn.encode(ctx, "movie", plan.Command(output), plan.Duration); err != nil {
		return "", nil, err
	}
	logger.Info("movie ready",
		logging.String("path", output),
		logging.Float64("duration", plan.Duration),
		logging.Bool("bgm", music != ""),
		logging.String(logging.FieldEventType, "movie_ready"),
	)
	return output, state, nil
}

func (rn *run) encode(ctx context.Context, label string, args []string, duration float64) error {
	return rn.encoder.RunJob(ctx, encoder.Job{Args: args, Label: label, Duration: duration})
}

// suffix is empty for the language narrated into un-suffixed files.
func (rn *run) suffix(lang string) string {
	if lang == rn.scriptLang {
		return ""
	}
	return lang
}

// music returns the script's BGM, else the configured one. Local script
// paths resolve against the script directory.
func (rn *run) music() string {
	if rn.opts.NoBGM {
		return ""
	}
	if src := rn.script.Audio.BGM; src != nil && !src.IsZero() {
		location := src.Location()
		if src.IsRemote() || filepath.IsAbs(location) {
			return location
		}
		return filepath.Join(rn.baseDir, location)
	}
	return strings.TrimSpace(rn.cfg.Audio.BGM)
}

func (rn *run) mixInput(narrationPath, music string) audiomix.Input {
	cfg := rn.cfg.Audio
	in := audiomix.Input{
		NarrationPath: narrationPath,
		Music:         music,
		IntroPadding:  cfg.IntroPadding,
		OutroPadding:  cfg.OutroPadding,
		AudioVolume:   cfg.AudioVolume,
		BGMVolume:     cfg.BGMVolume,
		SampleRate:    cfg.SampleRate,
	}
	params := rn.script.Audio
	if params.IntroPadding != nil {
		in.IntroPadding = *params.IntroPadding
	}
	if params.OutroPadding != nil {
		in.OutroPadding = *params.OutroPadding
	}
	if params.AudioVolume != nil {
		in.AudioVolume = *params.AudioVolume
	}
	if params.BGMVolume != nil {
		in.BGMVolume = *params.BGMVolume
	}
	return in
}

func (rn *run) canvas() (int, int) {
	if c := rn.script.Canvas; c != nil {
		return c.Width, c.Height
	}
	return rn.cfg.Composition.Width, rn.cfg.Composition.Height
}

func (rn *run) assembleOptions() assemble.Options {
	width, height := rn.canvas()
	comp := rn.cfg.Composition
	return assemble.Options{
		Timeline: timeline.Options{
			Width:      width,
			Height:     height,
			FPS:        comp.FPS,
			EndGuard:   comp.EndGuardSeconds,
			SingleBeat: timeline.ConcatPolicy(comp.SingleBeatConcat),
		},
		VideoCodec:   rn.cfg.Encoder.VideoCodec,
		AudioCodec:   rn.cfg.Encoder.AudioCodec,
		AudioBitrate: rn.cfg.Encoder.AudioBitrate,
	}
}

func narrationBeats(state *studio.State, lang string) []audiomix.NarrationBeat {
	beats := make([]audiomix.NarrationBeat, len(state.Beats))
	for i, beat := range state.Beats {
		beats[i].AudioFile = beat.AudioFor(lang, state.Script.Lang)
		if beat.Duration != nil {
			beats[i].Duration = *beat.Duration
		}
	}
	return beats
}

// cloneState copies the beat slice so per-language durations never leak
// between languages. Maps and the script are shared read-only.
func cloneState(state *studio.State) *studio.State {
	out := &studio.State{Script: state.Script, Beats: make([]studio.Beat, len(state.Beats))}
	copy(out.Beats, state.Beats)
	return out
}
