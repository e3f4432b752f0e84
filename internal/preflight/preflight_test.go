package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"mulmocast/internal/config"
	"mulmocast/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := testsupport.WriteText(t, filepath.Join(t.TempDir(), "file.txt"), "x")
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckMusic_Local(t *testing.T) {
	f := testsupport.WriteText(t, filepath.Join(t.TempDir(), "bgm.mp3"), "x")
	if result := CheckMusic(context.Background(), f, ""); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckMusic(context.Background(), f+".missing", ""); result.Passed {
		t.Fatal("expected failure for missing music")
	}
}

func TestCheckMusic_Remote(t *testing.T) {
	var gotMethod, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotAgent = r.Method, r.Header.Get("User-Agent")
		if r.URL.Path != "/bgm.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckMusic(context.Background(), srv.URL+"/bgm.mp3", "mulmo/test")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if gotMethod != http.MethodHead || gotAgent != "mulmo/test" {
		t.Fatalf("unexpected request %s %q", gotMethod, gotAgent)
	}
	if result := CheckMusic(context.Background(), srv.URL+"/other.mp3", ""); result.Passed {
		t.Fatal("expected failure for 404")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Audio.BGM = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_IncludesMusicWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Audio.BGM = filepath.Join(t.TempDir(), "missing.mp3")

	results := RunAll(context.Background(), &cfg)
	failed := Failed(results)
	if len(results) != 4 || len(failed) != 1 || failed[0].Name != "Background music" {
		t.Fatalf("expected only the music check to fail, got %+v", results)
	}
}

func TestCheckSystemDeps_MissingFFmpegSkipsFilterCheck(t *testing.T) {
	cfg := config.Default()
	cfg.Encoder.FFmpegBinary = "clearly-not-present-ffmpeg"
	cfg.Encoder.FFprobeBinary = "clearly-not-present-ffprobe"

	statuses := CheckSystemDeps(context.Background(), &cfg)
	if len(statuses) != 5 {
		t.Fatalf("expected 5 statuses, got %d", len(statuses))
	}
	if statuses[0].Available || statuses[1].Available {
		t.Fatalf("expected missing binaries, got %+v", statuses[:2])
	}
	for _, s := range statuses[2:] {
		if !s.Optional {
			t.Fatalf("generator commands should be optional: %+v", s)
		}
	}
}

func TestCheckSystemDeps_StubbedBinariesLackFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 6 {
		t.Fatalf("expected filter check appended, got %d statuses", len(statuses))
	}
	if !statuses[0].Available || !statuses[1].Available {
		t.Fatalf("expected stubbed binaries on PATH, got %+v", statuses[:2])
	}
	filters := statuses[5]
	if filters.Name != "FFmpeg filters" || filters.Available {
		t.Fatalf("expected failing filter check, got %+v", filters)
	}
	if !strings.HasPrefix(filters.Detail, "missing filters: adelay") {
		t.Fatalf("unexpected detail %q", filters.Detail)
	}
}
