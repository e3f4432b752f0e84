package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"mulmocast/internal/artifact"
	"mulmocast/internal/config"
	"mulmocast/internal/fileutil"
	"mulmocast/internal/logging"
	"mulmocast/internal/services"
)

// CommandGenerator runs configured external commands as generators. Each
// command argument may contain placeholders:
//
//	{output} {key} {kind} {lang} {speaker} {text}
//	{input} (rendered markup written to a temporary .html file)
//	{prompt} {width} {height} {duration}
//
// The command must write {output}; the result is reported as saved.
type CommandGenerator struct {
	TTSCommand    []string
	RenderCommand []string
	MovieCommand  []string

	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewCommandGenerator builds a generator from the configured commands.
func NewCommandGenerator(cfg *config.Config, logger *slog.Logger) *CommandGenerator {
	g := &CommandGenerator{logger: logging.NewComponentLogger(logger, "command-generator")}
	if cfg != nil {
		g.TTSCommand = cfg.Generation.TTSCommand
		g.RenderCommand = cfg.Generation.RenderCommand
		g.MovieCommand = cfg.Generation.MovieCommand
	}
	return g
}

// WithCommandRunner replaces process execution (for testing).
func (g *CommandGenerator) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	g.commandRunner = runner
}

// Generators returns the collaborator set backed by g for every configured
// command; downloader is passed through.
func (g *CommandGenerator) Generators(downloader Downloader) Generators {
	gens := Generators{Downloader: downloader}
	if len(g.TTSCommand) > 0 {
		gens.Audio = g
	}
	if len(g.RenderCommand) > 0 {
		gens.Renderer = g
	}
	if len(g.MovieCommand) > 0 {
		gens.Movie = g
	}
	return gens
}

// Synthesize implements AudioGenerator.
func (g *CommandGenerator) Synthesize(ctx context.Context, req SpeechRequest) (artifact.Output, error) {
	return g.run(ctx, "speech", g.TTSCommand, req.Output, map[string]string{
		"key":     req.Key,
		"kind":    "speech",
		"lang":    req.Lang,
		"speaker": req.Speaker,
		"text":    req.Text,
	})
}

// Render implements Renderer.
func (g *CommandGenerator) Render(ctx context.Context, req RenderRequest) (artifact.Output, error) {
	if len(g.RenderCommand) == 0 {
		return artifact.Output{}, missingGenerator("render", string(req.Kind))
	}
	input, err := writeMarkup(req.Markup)
	if err != nil {
		return artifact.Output{}, services.Wrap(services.ErrGeneration, "render", "write markup", req.Key, err)
	}
	defer os.Remove(input)
	return g.run(ctx, "render", g.RenderCommand, req.Output, map[string]string{
		"key":    req.Key,
		"kind":   string(req.Kind),
		"input":  input,
		"width":  strconv.Itoa(req.Width),
		"height": strconv.Itoa(req.Height),
	})
}

// Generate implements MovieGenerator.
func (g *CommandGenerator) Generate(ctx context.Context, req MovieRequest) (artifact.Output, error) {
	duration := ""
	if req.Duration != nil {
		duration = strconv.FormatFloat(*req.Duration, 'f', -1, 64)
	}
	return g.run(ctx, "movie", g.MovieCommand, req.Output, map[string]string{
		"key":      req.Key,
		"kind":     "movie",
		"prompt":   req.Prompt,
		"width":    strconv.Itoa(req.Width),
		"height":   strconv.Itoa(req.Height),
		"duration": duration,
	})
}

func (g *CommandGenerator) run(ctx context.Context, kind string, command []string, output string, values map[string]string) (artifact.Output, error) {
	if len(command) == 0 {
		return artifact.Output{}, missingGenerator(kind, values["key"])
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return artifact.Output{}, services.Wrap(services.ErrGeneration, kind, "prepare output", output, err)
	}
	values["output"] = output
	args := expandCommand(command, values)

	logger := logging.WithContext(ctx, g.logger)
	logger.Debug("running generator command",
		logging.String("generator", kind),
		logging.String("command", args[0]),
		logging.String("output", output),
	)
	runner := g.commandRunner
	if runner == nil {
		runner = defaultCommandRunner
	}
	if err := runner(ctx, args[0], args[1:]...); err != nil {
		return artifact.Output{}, services.Wrap(services.ErrGeneration, kind, "run "+args[0], values["key"], err)
	}
	if !fileutil.Exists(output) {
		return artifact.Output{}, services.Wrap(services.ErrGeneration, kind, "run "+args[0], fmt.Sprintf("command did not write %s", output), nil)
	}
	return artifact.SavedOutput(), nil
}

func expandCommand(command []string, values map[string]string) []string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}
	replacer := strings.NewReplacer(pairs...)
	args := make([]string, len(command))
	for i, arg := range command {
		args[i] = replacer.Replace(arg)
	}
	return args
}

func writeMarkup(markup string) (string, error) {
	file, err := os.CreateTemp("", "mulmo-render-*.html")
	if err != nil {
		return "", err
	}
	page := "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"></head><body>\n" + markup + "\n</body></html>\n"
	if _, err := file.WriteString(page); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
