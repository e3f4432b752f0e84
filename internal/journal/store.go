package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mulmocast/internal/config"
	"mulmocast/internal/logging"
	"mulmocast/internal/session"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID           string
	ScriptName   string
	ScriptPath   string
	Languages    []string
	Status       RunStatus
	OutputPath   string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Event is one recorded tracker transition.
type Event struct {
	ID          int64
	RunID       string
	Kind        session.EventKind
	SessionType string
	BeatKey     string
	InSession   bool
	RecordedAt  time.Time
}

// Store persists runs and events in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open ensures the state directory and opens the journal configured by cfg.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JournalPath())
}

// OpenPath opens or creates the journal database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Observers record from many goroutines; one connection serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BeginRun records a new running run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	started := run.StartedAt
	if started.IsZero() {
		started = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, script_name, script_path, languages, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ScriptName,
		nullableString(run.ScriptPath),
		nullableString(strings.Join(run.Languages, ",")),
		RunRunning,
		formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun marks a run succeeded or, when runErr is set, failed.
func (s *Store) FinishRun(ctx context.Context, id, outputPath string, runErr error) error {
	status, message := RunSucceeded, ""
	if runErr != nil {
		status, message = RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, output_path = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status,
		nullableString(outputPath),
		nullableString(message),
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %q", id)
	}
	return nil
}

// RecordEvent appends one tracker transition to the run.
func (s *Store) RecordEvent(ctx context.Context, runID string, event session.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, kind, session_type, beat_key, in_session, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		string(event.Kind),
		event.SessionType,
		nullableString(event.ID),
		boolToInt(event.InSession),
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Sink returns an observer that records every event for runID. Write
// failures are logged and never interrupt the pipeline.
func (s *Store) Sink(ctx context.Context, runID string, logger *slog.Logger) session.Observer {
	logger = logging.NewComponentLogger(logger, "journal")
	return func(event session.Event) {
		if err := s.RecordEvent(context.WithoutCancel(ctx), runID, event); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
				logging.String(logging.FieldRunID, runID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "status output for this run will be incomplete"),
				logging.String(logging.FieldErrorHint, "check free space in the state directory"),
			)
		}
	}
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, script_name, script_path, languages, status, output_path, error_message, started_at, finished_at
              FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run; nil when unknown.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, script_name, script_path, languages, status, output_path, error_message, started_at, finished_at
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Events returns the run's events in recording order.
func (s *Store) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, kind, session_type, beat_key, in_session, recorded_at
         FROM events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e         Event
			kind      string
			beatKey   sql.NullString
			inSession int
			recorded  string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &kind, &e.SessionType, &beatKey, &inSession, &recorded); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = session.EventKind(kind)
		e.BeatKey = beatKey.String
		e.InSession = inSession != 0
		e.RecordedAt = parseTime(recorded)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Summary counts finished beat units per beat session type.
type Summary struct {
	Completed map[string]int
	Running   map[string][]string
}

// Summarize replays a run's events into per-type completion counts and the
// beats still marked running.
func (s *Store) Summarize(ctx context.Context, runID string) (Summary, error) {
	events, err := s.Events(ctx, runID)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Completed: make(map[string]int), Running: make(map[string][]string)}
	running := make(map[string]map[string]bool)
	for _, e := range events {
		if e.Kind != session.KindBeat {
			continue
		}
		if running[e.SessionType] == nil {
			running[e.SessionType] = make(map[string]bool)
		}
		if e.InSession {
			running[e.SessionType][e.BeatKey] = true
			continue
		}
		if running[e.SessionType][e.BeatKey] {
			delete(running[e.SessionType], e.BeatKey)
			summary.Completed[e.SessionType]++
		}
	}
	for kind, keys := range running {
		for key := range keys {
			summary.Running[kind] = append(summary.Running[kind], key)
		}
		sort.Strings(summary.Running[kind])
	}
	return summary, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		scriptPath sql.NullString
		languages  sql.NullString
		status     string
		output     sql.NullString
		message    sql.NullString
		started    string
		finished   sql.NullString
	)
	if err := row.Scan(&run.ID, &run.ScriptName, &scriptPath, &languages, &status, &output, &message, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.ScriptPath = scriptPath.String
	if languages.String != "" {
		run.Languages = strings.Split(languages.String, ",")
	}
	run.Status = RunStatus(status)
	run.OutputPath = output.String
	run.ErrorMessage = message.String
	run.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		run.FinishedAt = &t
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
