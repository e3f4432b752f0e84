package logging

import (
	"context"
	"log/slog"

	"mulmocast/internal/services"
)

const (
	// FieldComponent names the subsystem emitting a log line.
	FieldComponent = "component"
	// FieldRunID correlates every line of one pipeline run.
	FieldRunID = "run_id"
	// FieldStage names the pipeline stage (audio, images, movie, ...).
	FieldStage = "stage"
	// FieldBeat is the beat key (explicit id or index).
	FieldBeat = "beat"
	// FieldLanguage is the narration language being processed.
	FieldLanguage = "lang"
	// FieldSessionType is the session or beat-session kind.
	FieldSessionType = "session_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if key, ok := services.BeatKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBeat, key))
	}
	if lang, ok := services.LanguageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLanguage, lang))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
