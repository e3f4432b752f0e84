package generation

import (
	"context"

	"mulmocast/internal/artifact"
	"mulmocast/internal/mediatype"
)

// SpeechRequest asks a text-to-speech generator for one narration clip.
type SpeechRequest struct {
	Key     string
	Lang    string
	Speaker string
	Text    string
	Output  string
}

// RenderRequest asks a renderer to rasterize markup into an image.
type RenderRequest = mediatype.RenderRequest

// MovieRequest asks a movie generator for a clip from a prompt.
type MovieRequest = mediatype.MovieRequest

// AudioGenerator synthesizes narration.
type AudioGenerator interface {
	Synthesize(ctx context.Context, req SpeechRequest) (artifact.Output, error)
}

// Renderer turns HTML markup into an image.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (artifact.Output, error)
}

// MovieGenerator produces a clip from a prompt.
type MovieGenerator interface {
	Generate(ctx context.Context, req MovieRequest) (artifact.Output, error)
}

// Downloader fetches remote media.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Generators groups the external collaborators. Nil members are reported as
// configuration errors when a beat needs them.
type Generators struct {
	Audio      AudioGenerator
	Renderer   Renderer
	Movie      MovieGenerator
	Downloader Downloader
}
