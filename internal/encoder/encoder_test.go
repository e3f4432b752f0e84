package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mulmocast/internal/logging"
	"mulmocast/internal/services"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestRunJobReportsProgressAndWritesOutput(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	t.Setenv("STUB_ARGS_FILE", argsFile)
	stub := writeStub(t, `echo "$@" > "$STUB_ARGS_FILE"
echo "frame=1"
echo "out_time_us=2000000"
echo "progress=continue"
echo "out_time_us=4000000"
echo "progress=end"
for last; do :; done
echo movie > "$last"
`)
	output := filepath.Join(t.TempDir(), "out.mp4")
	var updates []Progress
	runner := NewRunner(stub, logging.NewNop())
	err := runner.RunJob(context.Background(), Job{
		Args:       []string{"-i", "in.png", output},
		Label:      "movie",
		Duration:   4,
		OnProgress: func(p Progress) { updates = append(updates, p) },
	})
	if err != nil {
		t.Fatalf("RunJob failed: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %+v", updates)
	}
	if updates[0].Percent != 50 || updates[0].Done {
		t.Fatalf("unexpected first update %+v", updates[0])
	}
	if updates[1].Percent != 100 || !updates[1].Done || updates[1].OutTimeSeconds != 4 {
		t.Fatalf("unexpected final update %+v", updates[1])
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output written: %v", err)
	}
	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if !strings.HasPrefix(string(recorded), "-hide_banner -nostdin -y ") || !strings.Contains(string(recorded), "-progress pipe:1 -i in.png") {
		t.Fatalf("unexpected args %q", recorded)
	}
}

func TestRunFailureCarriesStderr(t *testing.T) {
	stub := writeStub(t, `echo "Invalid filter graph" >&2
exit 1
`)
	err := NewRunner(stub, nil).Run(context.Background(), []string{"out.mp4"})
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid filter graph") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	err := NewRunner(filepath.Join(t.TempDir(), "nope"), nil).Run(context.Background(), nil)
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	b := &tailBuffer{max: 2}
	_, _ = b.Write([]byte("one\ntwo\nthr"))
	_, _ = b.Write([]byte("ee\nfour"))
	if got := b.String(); got != "two; three; four" {
		t.Fatalf("got %q", got)
	}
}

func TestParseProgressWithoutDuration(t *testing.T) {
	var got []Progress
	parseProgress(strings.NewReader("out_time_ms=1500000\nprogress=continue\n"), 0, func(p Progress) { got = append(got, p) })
	if len(got) != 1 || got[0].OutTimeSeconds != 1.5 || got[0].Percent != 0 {
		t.Fatalf("unexpected progress %+v", got)
	}
}
