package generation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mulmocast/internal/artifact"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
)

// tools adapts Generators to the mediatype capability contract.
type tools struct {
	generators Generators
	baseDir    string
}

func (t tools) Render(ctx context.Context, req RenderRequest) (artifact.Output, error) {
	if t.generators.Renderer == nil {
		return artifact.Output{}, missingGenerator("render", string(req.Kind))
	}
	return t.generators.Renderer.Render(ctx, req)
}

func (t tools) GenerateMovie(ctx context.Context, req MovieRequest) (artifact.Output, error) {
	if t.generators.Movie == nil {
		return artifact.Output{}, missingGenerator("movie", "movie prompt")
	}
	return t.generators.Movie.Generate(ctx, req)
}

// Fetch downloads remote sources and reads local ones relative to baseDir.
func (t tools) Fetch(ctx context.Context, src script.Source) ([]byte, error) {
	location := src.Location()
	if src.IsRemote() {
		if t.generators.Downloader == nil {
			return nil, missingGenerator("fetch", location)
		}
		return t.generators.Downloader.Download(ctx, location)
	}
	path := location
	if !filepath.IsAbs(path) && t.baseDir != "" {
		path = filepath.Join(t.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "fetch", "read source", path, err)
	}
	return data, nil
}

func missingGenerator(kind, subject string) error {
	return services.Wrap(services.ErrConfiguration, "generation", kind, fmt.Sprintf("no %s generator configured for %s", kind, subject), nil)
}
