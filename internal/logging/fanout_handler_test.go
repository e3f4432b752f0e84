package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	var console, runLog bytes.Buffer
	consoleHandler := slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo})
	runHandler := slog.NewJSONHandler(&runLog, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(consoleHandler, runHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled when any handler accepts it")
	}

	logger := slog.New(h)
	logger.Debug("probe command")
	if console.Len() != 0 {
		t.Fatalf("console handler should not receive debug records, got %s", console.String())
	}
	if runLog.Len() == 0 {
		t.Fatal("run log handler should receive debug records")
	}

	logger.Info("stage completed")
	if !bytes.Contains(console.Bytes(), []byte("stage completed")) {
		t.Fatal("expected info record on console")
	}
}

func TestFanoutHandlerWithAttrsAndGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("run_id", "abc")}).WithGroup("encoder"))
	logger.Info("encode", slog.String("codec", "libx264"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"run_id":"abc"`)) {
			t.Fatalf("handler %d missing run_id: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"encoder":{"codec":"libx264"}`)) {
			t.Fatalf("handler %d missing grouped attr: %s", i, buf.String())
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	logger := TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil))

	logger.Info("teed message")
	if baseBuf.Len() == 0 || teeBuf.Len() == 0 {
		t.Fatalf("expected both outputs, base=%q tee=%q", baseBuf.String(), teeBuf.String())
	}

	var onlyTee bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&onlyTee, nil)).Info("no base")
	if onlyTee.Len() == 0 {
		t.Fatal("expected output in tee buffer with nil base")
	}
}
