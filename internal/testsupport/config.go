package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"mulmocast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Audio.BGM = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := b.binDir()
		for _, name := range names {
			writeExecutable(b.t, filepath.Join(binDir, name), "exit 0\n")
		}
		b.prependPath(binDir)
	}
}

// WithFakeEncoder points the encoder settings at stub binaries: ffprobe
// reports every file as lasting seconds, and ffmpeg writes its last argument.
func WithFakeEncoder(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		binDir := b.binDir()
		probe := filepath.Join(binDir, "fake-ffprobe")
		writeExecutable(b.t, probe, fmt.Sprintf(
			"printf '%%s' '{\"streams\":[{\"index\":0,\"codec_type\":\"audio\",\"duration\":\"%g\"}],\"format\":{\"duration\":\"%g\"}}'\n",
			seconds, seconds))
		encoder := filepath.Join(binDir, "fake-ffmpeg")
		writeExecutable(b.t, encoder, "for last; do :; done\nmkdir -p \"$(dirname \"$last\")\"\necho encoded > \"$last\"\necho progress=end\n")
		b.cfg.Encoder.FFprobeBinary = probe
		b.cfg.Encoder.FFmpegBinary = encoder
	}
}

// WithFakeGenerators configures shell generator commands that write a small
// placeholder to {output}.
func WithFakeGenerators() ConfigOption {
	return func(b *configBuilder) {
		write := `mkdir -p "$(dirname "$1")" && printf '%s' "$2" > "$1"`
		b.cfg.Generation.TTSCommand = []string{"/bin/sh", "-c", write, "tts", "{output}", "{lang}:{text}"}
		b.cfg.Generation.RenderCommand = []string{"/bin/sh", "-c", write, "render", "{output}", "{kind}"}
		b.cfg.Generation.MovieCommand = []string{"/bin/sh", "-c", write, "movie", "{output}", "{prompt}"}
	}
}

func (b *configBuilder) binDir() string {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return binDir
}

func (b *configBuilder) prependPath(dir string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

func writeExecutable(t testing.TB, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}
