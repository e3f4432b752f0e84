package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"mulmocast/internal/artifact"
	"mulmocast/internal/logging"
	"mulmocast/internal/mediatype"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/session"
	"mulmocast/internal/studio"
)

// Options tunes one generation batch.
type Options struct {
	// Concurrency caps in-flight units; non-positive means unlimited.
	Concurrency int
	Force       bool
	Backup      bool
	Width       int
	Height      int
	// BaseDir resolves relative local media paths.
	BaseDir string
}

// Orchestrator runs generation batches for one output layout.
type Orchestrator struct {
	cache      *artifact.Cache
	tracker    *session.Tracker
	registry   *mediatype.Registry
	generators Generators
	layout     studio.Layout
	logger     *slog.Logger
}

// New wires an orchestrator. A nil registry uses mediatype.Default.
func New(cache *artifact.Cache, tracker *session.Tracker, registry *mediatype.Registry, generators Generators, layout studio.Layout, logger *slog.Logger) *Orchestrator {
	if registry == nil {
		registry = mediatype.Default()
	}
	if tracker == nil {
		tracker = session.NewTracker(nil)
	}
	if cache == nil {
		cache = artifact.NewCache(logger)
	}
	return &Orchestrator{
		cache:      cache,
		tracker:    tracker,
		registry:   registry,
		generators: generators,
		layout:     layout,
		logger:     logging.NewComponentLogger(logger, "generation"),
	}
}

// Tracker exposes the progress tracker the orchestrator reports to.
func (o *Orchestrator) Tracker() *session.Tracker {
	return o.tracker
}

// GenerateImages produces every image-backed beat visual and records its path.
func (o *Orchestrator) GenerateImages(ctx context.Context, state *studio.State, opts Options) error {
	return o.generateVisuals(ctx, state, opts, mediatype.VisualImage)
}

// GenerateMovies produces every movie-backed beat visual and records its path.
func (o *Orchestrator) GenerateMovies(ctx context.Context, state *studio.State, opts Options) error {
	return o.generateVisuals(ctx, state, opts, mediatype.VisualMovie)
}

func (o *Orchestrator) generateVisuals(ctx context.Context, state *studio.State, opts Options, visual mediatype.Visual) error {
	sessionType, beatType, stage := session.TypeImage, session.BeatImage, "images"
	if visual == mediatype.VisualMovie {
		sessionType, beatType, stage = session.TypeVideo, session.BeatMovie, "movies"
	}
	ctx = services.WithStage(ctx, stage)

	type unit struct {
		index int
		cap   mediatype.Capability
		req   mediatype.Request
	}
	var units []unit
	for i, beat := range state.Script.Beats {
		capability, err := o.registry.Lookup(beat.Media.Type)
		if err != nil {
			return err
		}
		if capability.Visual() != visual {
			continue
		}
		units = append(units, unit{index: i, cap: capability, req: o.mediaRequest(state.Script, i, opts)})
	}
	if len(units) == 0 {
		return nil
	}

	paths := make([]string, len(units))
	t := tools{generators: o.generators, baseDir: opts.BaseDir}
	err := o.tracker.TrackSession(ctx, sessionType, func(ctx context.Context) error {
		return fanOut(ctx, len(units), opts.Concurrency, func(ctx context.Context, n int) error {
			u := units[n]
			ctx = services.WithBeatKey(ctx, u.req.Key)
			return o.tracker.Track(ctx, beatType, u.req.Key, func(ctx context.Context) error {
				path, err := o.cache.RequestArtifact(ctx, artifact.Request{
					Key:    artifact.Key{Session: beatType, Beat: u.req.Key},
					Path:   u.cap.OutputPath(u.req),
					Force:  []bool{opts.Force},
					Backup: opts.Backup,
				}, func(ctx context.Context) (artifact.Output, error) {
					return u.cap.Produce(ctx, u.req, t)
				})
				if err != nil {
					return err
				}
				paths[n] = path
				return nil
			})
		})
	})

	for n, u := range units {
		if paths[n] == "" {
			continue
		}
		if visual == mediatype.VisualMovie {
			state.Beats[u.index].MovieFile = paths[n]
		} else {
			state.Beats[u.index].ImageFile = paths[n]
		}
	}
	if err != nil {
		o.logFailure(ctx, stage, err)
		return err
	}
	o.logger.Info("beat visuals ready",
		logging.String(logging.FieldStage, stage),
		logging.Int("count", len(units)),
		logging.String(logging.FieldEventType, stage+"_ready"),
	)
	return nil
}

// GenerateAudio synthesizes narration for every beat in every language. The
// first entry of langs is used when the script declares no language.
func (o *Orchestrator) GenerateAudio(ctx context.Context, state *studio.State, langs []string, opts Options) error {
	s := state.Script
	if len(langs) == 0 {
		langs = []string{primaryLanguage(s, nil)}
	}
	primary := primaryLanguage(s, langs)
	ctx = services.WithStage(ctx, "audio")

	type unit struct {
		index     int
		lang      string
		beatType  session.BeatType
		trackKey  string
		path      string
		produce   artifact.Producer
		isPrimary bool
	}
	var units []unit
	t := tools{generators: o.generators, baseDir: opts.BaseDir}
	for i, beat := range s.Beats {
		key := s.BeatKey(i)
		for _, lang := range langs {
			isPrimary := lang == primary
			suffix, beatType, trackKey := "", session.BeatAudio, key
			if !isPrimary {
				suffix, beatType, trackKey = lang, session.BeatMultiLingual, key+"_"+lang
			}
			u := unit{index: i, lang: lang, beatType: beatType, trackKey: trackKey, isPrimary: isPrimary}

			if beat.Media.Type == script.KindAudio {
				src := beat.Media.Source
				if src == nil || src.IsZero() {
					return services.Wrap(services.ErrPrecondition, "audio", "generate", fmt.Sprintf("beat %q has no audio source", key), nil)
				}
				u.path = o.layout.BeatAudioPath(key, suffix)
				u.produce = func(ctx context.Context) (artifact.Output, error) {
					data, err := t.Fetch(ctx, *src)
					if err != nil {
						return artifact.Output{}, err
					}
					return artifact.BufferOutput(data), nil
				}
				units = append(units, u)
				continue
			}

			text, ok := s.TextFor(i, langForText(s, lang, primary))
			if !ok {
				return services.Wrap(services.ErrPrecondition, "audio", "generate", fmt.Sprintf("beat %q has no %s text", key, lang), nil)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			req := SpeechRequest{Key: key, Lang: lang, Speaker: beat.Speaker, Text: text, Output: o.layout.BeatAudioPath(key, suffix)}
			u.path = req.Output
			u.produce = func(ctx context.Context) (artifact.Output, error) {
				if o.generators.Audio == nil {
					return artifact.Output{}, missingGenerator("speech", key)
				}
				return o.generators.Audio.Synthesize(ctx, req)
			}
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return nil
	}

	paths := make([]string, len(units))
	run := func(ctx context.Context) error {
		return fanOut(ctx, len(units), opts.Concurrency, func(ctx context.Context, n int) error {
			u := units[n]
			ctx = services.WithLanguage(services.WithBeatKey(ctx, s.BeatKey(u.index)), u.lang)
			return o.tracker.Track(ctx, u.beatType, u.trackKey, func(ctx context.Context) error {
				path, err := o.cache.RequestArtifact(ctx, artifact.Request{
					Key:    artifact.Key{Session: u.beatType, Beat: u.trackKey},
					Path:   u.path,
					Force:  []bool{opts.Force},
					Backup: opts.Backup,
				}, u.produce)
				if err != nil {
					return err
				}
				paths[n] = path
				return nil
			})
		})
	}
	var err error
	if len(langs) > 1 {
		err = o.tracker.TrackSession(ctx, session.TypeAudio, func(ctx context.Context) error {
			return o.tracker.TrackSession(ctx, session.TypeMultiLingual, run)
		})
	} else {
		err = o.tracker.TrackSession(ctx, session.TypeAudio, run)
	}

	for n, u := range units {
		if paths[n] == "" {
			continue
		}
		beat := &state.Beats[u.index]
		if beat.AudioFiles == nil {
			beat.AudioFiles = make(map[string]string, len(langs))
		}
		beat.AudioFiles[u.lang] = paths[n]
		if u.isPrimary {
			beat.AudioFile = paths[n]
		}
	}
	if err != nil {
		o.logFailure(ctx, "audio", err)
		return err
	}
	o.logger.Info("narration ready",
		logging.Int("clips", len(units)),
		logging.String("languages", strings.Join(langs, ",")),
		logging.String(logging.FieldEventType, "audio_ready"),
	)
	return nil
}

func (o *Orchestrator) mediaRequest(s *script.Script, index int, opts Options) mediatype.Request {
	return mediatype.Request{
		Script: s,
		Index:  index,
		Key:    s.BeatKey(index),
		Media:  s.Beats[index].Media,
		Layout: o.layout,
		Width:  opts.Width,
		Height: opts.Height,
	}
}

func (o *Orchestrator) logFailure(ctx context.Context, stage string, err error) {
	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "generation batch failed", stage+"_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Classify(err)),
		logging.String(logging.FieldErrorHint, "fix the failing beat and rerun; finished artifacts are reused"),
	)
}

// fanOut runs fn for 0..n-1 under an errgroup; the first error cancels the
// shared context and is returned once every started unit has exited.
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, index int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// primaryLanguage is the script language, else the first requested one.
func primaryLanguage(s *script.Script, langs []string) string {
	if lang := strings.TrimSpace(s.Lang); lang != "" {
		return lang
	}
	if len(langs) > 0 {
		return langs[0]
	}
	return "en"
}

// langForText maps the primary language to the script's own Text.
func langForText(s *script.Script, lang, primary string) string {
	if lang == primary {
		return s.Lang
	}
	return lang
}
