package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mulmocast/internal/config"
	"mulmocast/internal/logging"
	"mulmocast/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(context.Background(), "audio")
	ctx = services.WithBeatKey(ctx, "intro")
	ctx = services.WithLanguage(ctx, "ja")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "generation"))
	logger.Info("artifact produced", logging.String("path", "/tmp/out.mp3"), logging.String(logging.FieldEventType, "artifact_produced"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"INFO [generation] audio · beat intro · ja – artifact produced", "- event_type: artifact_produced", "- path: /tmp/out.mp3"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in console output, got %q", want, text)
		}
	}
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
}

func TestJSONLoggerRenamesKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-1")
	logging.WithContext(ctx, logger).Warn("bgm missing")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["msg"] != "bgm missing" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["run_id"] != "run-1" {
		t.Fatalf("unexpected run_id: %v", payload["run_id"])
	}
	ts, ok := payload["ts"].(string)
	if !ok {
		t.Fatalf("expected ts string, got %T", payload["ts"])
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Fatalf("ts not RFC3339: %v", err)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "backup failed", "artifact_backup_failed", logging.String(logging.FieldImpact, "previous artifact overwritten"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[logging.FieldEventType] != "artifact_backup_failed" {
		t.Fatalf("missing event type: %v", payload)
	}
	if payload[logging.FieldErrorHint] == nil {
		t.Fatalf("missing error hint: %v", payload)
	}
	if payload[logging.FieldImpact] != "previous artifact overwritten" {
		t.Fatalf("impact overwritten: %v", payload[logging.FieldImpact])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := logging.ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestFormatSubject(t *testing.T) {
	if got := logging.FormatSubject("movie", "", ""); got != "movie" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := logging.FormatSubject("", "3", "en"); got != "beat 3 · en" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "run-old.log")
	fresh := filepath.Join(dir, "run-new.log")
	kept := filepath.Join(dir, "run-keep.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, kept, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{old, kept, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, logging.RunLogPattern, 7, kept)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, err=%v", err)
	}
	for _, path := range []string{fresh, kept, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
	if got := logging.CleanupOldLogs(nil, dir, logging.RunLogPattern, 0); got != 0 {
		t.Fatalf("expected retention 0 to disable pruning, got %d", got)
	}
}
