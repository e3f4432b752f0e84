package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080, Duration: "9.5"},
			{CodecType: "audio", Duration: "10.2"},
		},
		Format: Format{Duration: "10.25"},
	}
	if !result.HasAudio() || !result.HasVideo() {
		t.Fatal("expected audio and video streams")
	}
	if result.DurationSeconds() != 10.25 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	w, h, ok := result.VideoSize()
	if !ok || w != 1920 || h != 1080 {
		t.Fatalf("unexpected size %dx%d ok=%v", w, h, ok)
	}

	result.Format.Duration = ""
	if result.DurationSeconds() != 10.2 {
		t.Fatalf("expected stream fallback, got %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.HasAudio() {
		t.Fatal("expected no audio")
	}
	if _, _, ok := result.VideoSize(); ok {
		t.Fatal("expected no video size")
	}
}

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestProbeDurationUsesBinary(t *testing.T) {
	stub := writeStub(t, `echo '{"streams":[{"codec_type":"audio"}],"format":{"duration":"3.75"}}'`)
	got, err := NewProber(stub).ProbeDuration(context.Background(), "narration.mp3")
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	if got != 3.75 {
		t.Fatalf("got %v want 3.75", got)
	}
}

func TestProbeDurationFailures(t *testing.T) {
	failing := writeStub(t, `echo "No such file" >&2; exit 1`)
	if _, err := NewProber(failing).ProbeDuration(context.Background(), "missing.mp3"); err == nil {
		t.Fatal("expected error from failing ffprobe")
	}
	empty := writeStub(t, `echo '{"streams":[],"format":{}}'`)
	if _, err := NewProber(empty).ProbeDuration(context.Background(), "silent.mp3"); err == nil {
		t.Fatal("expected error for missing duration")
	}
	if _, err := Inspect(context.Background(), failing, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
