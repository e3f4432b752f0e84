package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mulmocast/internal/config"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, cfg *config.Config) *cliTestEnv {
	t.Helper()
	base := filepath.Dir(cfg.Paths.OutputDir)
	cfg.Logging.Level = "error"
	configPath := filepath.Join(base, "mulmo.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

const cliScript = `{
  "title": "CLI demo",
  "lang": "en",
  "beats": [
    {"text": "first", "media": {"type": "textSlide", "title": "One"}},
    {"text": "second", "media": {"type": "markdown", "markdown": "# Two"}}
  ]
}
`

func writeCLIScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "episode.json")
	if err := os.WriteFile(path, []byte(cliScript), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}
