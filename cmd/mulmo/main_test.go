package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mulmocast/internal/journal"
	"mulmocast/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.NewConfig(t))

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.OutputDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestMovieGraphAndStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeEncoder(1.5), testsupport.WithFakeGenerators())
	env := setupCLITestEnv(t, cfg)
	scriptPath := writeCLIScript(t, env.baseDir)

	out, stderr, err := runCLI(t, []string{"movie", scriptPath, "--skip-preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("movie: %v (stderr %s)", err, stderr)
	}
	requireContains(t, out, "finished (3s)")
	moviePath := filepath.Join(cfg.Paths.OutputDir, "episode.mp4")
	requireContains(t, out, moviePath)
	if _, err := os.Stat(moviePath); err != nil {
		t.Fatalf("expected movie at %s: %v", moviePath, err)
	}

	out, _, err = runCLI(t, []string{"graph", scriptPath}, env.configPath)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	requireContains(t, out, "concat=n=2:v=1:a=0[concat_video]")
	requireContains(t, out, "Duration: 3s")

	out, _, err = runCLI(t, []string{"graph", scriptPath, "--command"}, env.configPath)
	if err != nil {
		t.Fatalf("graph --command: %v", err)
	}
	if !strings.HasPrefix(out, cfg.Encoder.FFmpegBinary) || !strings.Contains(out, "-filter_complex '") {
		t.Fatalf("unexpected command line %q", out)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "episode")
	requireContains(t, out, "succeeded")

	store := testsupport.MustOpenJournal(t, cfg)
	runs, err := store.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %v %v", runs, err)
	}
	out, _, err = runCLI(t, []string{"status", runs[0].ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("status <id>: %v", err)
	}
	requireContains(t, out, "== Progress ==")
	requireContains(t, out, "2 beats done")
	requireContains(t, out, "English")
}

func TestStatusWithoutRuns(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.NewConfig(t))
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")

	if _, _, err := runCLI(t, []string{"status", "nope"}, env.configPath); err == nil {
		t.Fatal("expected unknown run to fail")
	}
}

func TestStatusShowsFailedRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	env := setupCLITestEnv(t, cfg)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	if err := store.BeginRun(ctx, journal.Run{ID: "abc123", ScriptName: "intro", Languages: []string{"ja"}}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.FinishRun(ctx, "abc123", "", os.ErrNotExist); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	out, _, err := runCLI(t, []string{"status", "abc123"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[ERROR] failed")
	requireContains(t, out, "file does not exist")
	requireContains(t, out, "No beat activity recorded")
}

func TestPreflightReportsMissingEncoder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Encoder.FFmpegBinary = filepath.Join(t.TempDir(), "missing-ffmpeg")
	cfg.Encoder.FFprobeBinary = filepath.Join(t.TempDir(), "missing-ffprobe")
	env := setupCLITestEnv(t, cfg)

	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "2 checks") {
		t.Fatalf("expected two failed checks, got %v", err)
	}
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "not found")
	requireContains(t, out, "Output directory:")
}
