package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mulmocast/internal/config"
	"mulmocast/internal/encoder"
	"mulmocast/internal/generation"
	"mulmocast/internal/journal"
	"mulmocast/internal/language"
	"mulmocast/internal/logging"
	"mulmocast/internal/media/ffprobe"
	"mulmocast/internal/mediatype"
	"mulmocast/internal/preflight"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/session"
	"mulmocast/internal/studio"
)

const (
	stageName       = "pipeline"
	defaultLanguage = "en"
)

// Encoder runs one encoder job.
type Encoder interface {
	RunJob(ctx context.Context, job encoder.Job) error
}

// Options selects what one run produces.
type Options struct {
	ScriptPath string
	// Languages overrides the script and configured narration languages.
	Languages []string
	Force     bool
	// NoBGM skips background music even when one is configured.
	NoBGM bool
	// EmbedBGM mixes the music inside the movie graph instead of rendering
	// a mixed track first.
	EmbedBGM      bool
	SkipPreflight bool
}

// Result describes a finished run.
type Result struct {
	RunID      string
	StudioPath string
	// Movies maps each narration language to its rendered movie.
	Movies map[string]string
	// Duration is the primary language movie length in seconds.
	Duration float64
}

// Runner executes pipeline runs against one configuration.
type Runner struct {
	cfg        *config.Config
	base       *slog.Logger
	registry   *mediatype.Registry
	observers  *session.Registry
	store      *journal.Store
	generators *generation.Generators
	encoder    Encoder
	prober     generation.Prober
	newRunID   func() string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithRegistry replaces the default media capability registry.
func WithRegistry(registry *mediatype.Registry) Option {
	return func(r *Runner) { r.registry = registry }
}

// WithObservers publishes tracker events to registry in addition to the
// journal.
func WithObservers(registry *session.Registry) Option {
	return func(r *Runner) { r.observers = registry }
}

// WithJournal records runs in store instead of opening the configured
// journal for every run. The caller keeps ownership of store.
func WithJournal(store *journal.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithGenerators replaces the configured command generators.
func WithGenerators(generators generation.Generators) Option {
	return func(r *Runner) { r.generators = &generators }
}

// WithEncoder replaces the ffmpeg runner.
func WithEncoder(enc Encoder) Option {
	return func(r *Runner) { r.encoder = enc }
}

// WithProber replaces the ffprobe duration prober.
func WithProber(prober generation.Prober) Option {
	return func(r *Runner) { r.prober = prober }
}

// WithRunIDFunc overrides run identifier generation.
func WithRunIDFunc(fn func() string) Option {
	return func(r *Runner) { r.newRunID = fn }
}

// New returns a runner for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{cfg: cfg, base: logger, newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = mediatype.Default()
	}
	if r.prober == nil {
		r.prober = ffprobe.NewProber(cfg.FFprobeBinary())
	}
	return r
}

// Run executes one script. The returned Result carries the run ID even when
// the run fails.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	id := r.newRunID()
	ctx = services.WithRunID(ctx, id)
	result := Result{RunID: id}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return result, services.Wrap(services.ErrConfiguration, stageName, "ensure directories", "", err)
	}
	base, closeLog := r.runLogger(id)
	defer closeLog()
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "pipeline"))

	if !opts.SkipPreflight {
		if err := checkPreflight(ctx, r.cfg); err != nil {
			return result, err
		}
	}

	s, err := loadScript(opts.ScriptPath)
	if err != nil {
		return result, err
	}
	langs, err := resolveLanguages(s, opts.Languages, r.cfg.Generation.Languages)
	if err != nil {
		return result, err
	}
	layout := studio.Layout{Root: r.cfg.Paths.OutputDir, Name: script.Name(opts.ScriptPath)}

	unlock, err := lockOutput(layout)
	if err != nil {
		return result, err
	}
	defer unlock()

	store, closeStore := r.openJournal(logger)
	defer closeStore()
	if store != nil {
		if err := store.BeginRun(ctx, journal.Run{ID: id, ScriptName: layout.Name, ScriptPath: opts.ScriptPath, Languages: langs}); err != nil {
			logging.WarnWithContext(logger, "journal unavailable for this run", "journal_begin_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "status output will not list this run"),
			)
			store = nil
		}
	}

	observers := r.observers
	if observers == nil {
		observers = session.NewRegistry()
	}
	if store != nil {
		dispose := observers.Subscribe(store.Sink(ctx, id, base))
		defer dispose()
	}

	logger.Info("run started",
		logging.String("script", opts.ScriptPath),
		logging.String("languages", strings.Join(langs, ",")),
		logging.String(logging.FieldEventType, "run_started"),
	)
	rn := r.newRun(id, opts, base, s, layout, langs, session.NewTracker(observers))
	result, err = rn.execute(ctx)
	result.RunID = id

	if store != nil {
		output := result.Movies[rn.primary]
		if ferr := store.FinishRun(context.WithoutCancel(ctx), id, output, err); ferr != nil {
			logging.WarnWithContext(logger, "journal finish failed", "journal_finish_failed", logging.Error(ferr))
		}
	}
	if err != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Classify(err)),
			logging.String(logging.FieldErrorHint, "fix the reported problem and rerun; finished assets are reused"),
		)
		return result, err
	}
	logger.Info("run finished",
		logging.String("studio", result.StudioPath),
		logging.Float64("duration", result.Duration),
		logging.Int("movies", len(result.Movies)),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return result, nil
}

// runLogger tees base into a JSON log file for this run and prunes old run
// logs. Failures only cost the file.
func (r *Runner) runLogger(id string) (*slog.Logger, func()) {
	dir := strings.TrimSpace(r.cfg.Paths.LogDir)
	if dir == "" {
		return r.base, func() {}
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%s.log", id))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logging.WarnWithContext(r.base, "run log unavailable", "run_log_failed",
			logging.String("path", path), logging.Error(err))
		return r.base, func() {}
	}
	handler, err := logging.NewWriterHandler(file, logging.Options{Level: r.cfg.Logging.Level, Format: "json"})
	if err != nil {
		_ = file.Close()
		logging.WarnWithContext(r.base, "run log unavailable", "run_log_failed",
			logging.String("path", path), logging.Error(err))
		return r.base, func() {}
	}
	logging.CleanupOldLogs(r.base, dir, logging.RunLogPattern, r.cfg.Logging.RetentionDays, path)
	return logging.TeeLogger(r.base, handler), func() { _ = file.Close() }
}

// openJournal returns the injected store or opens the configured one for
// this run. A journal that cannot be opened is logged and skipped.
func (r *Runner) openJournal(logger *slog.Logger) (*journal.Store, func()) {
	if r.store != nil {
		return r.store, func() {}
	}
	store, err := journal.Open(r.cfg)
	if err != nil {
		logging.WarnWithContext(logger, "journal unavailable for this run", "journal_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status output will not list this run"),
			logging.String(logging.FieldErrorHint, "check the state directory or delete a journal from an older version"),
		)
		return nil, func() {}
	}
	return store, func() { _ = store.Close() }
}

// lockOutput claims the script's output layout so two runs never write the
// same studio document.
func lockOutput(layout studio.Layout) (func(), error) {
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "lock", layout.Root, err)
	}
	lock := flock.New(filepath.Join(layout.Root, "."+layout.Name+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "lock", "acquire output lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrPrecondition, stageName, "lock",
			fmt.Sprintf("another run is already writing %s", layout.StudioPath()), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func checkPreflight(ctx context.Context, cfg *config.Config) error {
	var parts []string
	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		if !status.Available && !status.Optional {
			parts = append(parts, status.Name+": "+status.Detail)
		}
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		parts = append(parts, result.Name+": "+result.Detail)
	}
	if len(parts) == 0 {
		return nil
	}
	return services.Wrap(services.ErrPrecondition, stageName, "preflight", strings.Join(parts, "; "), nil)
}

// resolveLanguages picks the narration languages: requested ones, else the
// script language, else configuration.
func resolveLanguages(s *script.Script, requested, configured []string) ([]string, error) {
	candidates := requested
	if len(candidates) == 0 && strings.TrimSpace(s.Lang) != "" {
		candidates = []string{s.Lang}
	}
	if len(candidates) == 0 {
		candidates = configured
	}
	langs, err := language.NormalizeList(candidates)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, stageName, "languages", "", err)
	}
	if len(langs) == 0 {
		langs = []string{defaultLanguage}
	}
	return langs, nil
}

// loadScript reads the script and canonicalizes its language tag.
func loadScript(path string) (*script.Script, error) {
	s, err := script.Load(path)
	if err != nil {
		return nil, err
	}
	if lang := strings.TrimSpace(s.Lang); lang != "" {
		if canonical, err := language.Canonical(lang); err == nil {
			s.Lang = canonical
		}
	}
	return s, nil
}
