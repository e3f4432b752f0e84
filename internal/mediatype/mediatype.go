package mediatype

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mulmocast/internal/artifact"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/studio"
)

// Visual is the kind of visual artifact a media kind yields.
type Visual int

const (
	// VisualNone kinds carry no picture; the beat rides on the previous visual.
	VisualNone Visual = iota
	VisualImage
	VisualMovie
)

func (v Visual) String() string {
	switch v {
	case VisualImage:
		return "image"
	case VisualMovie:
		return "movie"
	default:
		return "none"
	}
}

// Request is one beat's media production input.
type Request struct {
	Script *script.Script
	Index  int
	Key    string
	Media  script.MediaDescriptor
	Layout studio.Layout
	Width  int
	Height int
}

// RenderRequest asks a renderer to rasterize markup into an image.
type RenderRequest struct {
	Kind   script.Kind
	Key    string
	Markup string
	Width  int
	Height int
	Output string
}

// MovieRequest asks a movie generator for a clip from a prompt.
type MovieRequest struct {
	Key      string
	Prompt   string
	Duration *float64
	Width    int
	Height   int
	Output   string
}

// Tools are the external collaborators a capability may call.
type Tools interface {
	Render(ctx context.Context, req RenderRequest) (artifact.Output, error)
	GenerateMovie(ctx context.Context, req MovieRequest) (artifact.Output, error)
	Fetch(ctx context.Context, src script.Source) ([]byte, error)
}

// Capability is implemented once per media kind.
type Capability interface {
	Kind() script.Kind
	Visual() Visual
	// OutputPath locates the beat's visual artifact; empty for VisualNone.
	OutputPath(req Request) string
	// Produce generates the artifact for OutputPath.
	Produce(ctx context.Context, req Request, tools Tools) (artifact.Output, error)
	// Preview returns HTML markup describing the beat's visual.
	Preview(req Request) (string, error)
}

// Registry dispatches capabilities by kind.
type Registry struct {
	caps map[script.Kind]Capability
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[script.Kind]Capability)}
}

// Default returns a registry with every built-in kind registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(sourceCapability{kind: script.KindImage, visual: VisualImage})
	r.Register(sourceCapability{kind: script.KindMovie, visual: VisualMovie})
	r.Register(referenceCapability{})
	for _, kind := range []script.Kind{script.KindMarkdown, script.KindTextSlide, script.KindHTML, script.KindChart, script.KindMermaid, script.KindSlide} {
		r.Register(renderedCapability{kind: kind})
	}
	r.Register(silentCapability{kind: script.KindVoiceOver})
	r.Register(silentCapability{kind: script.KindAudio})
	return r
}

// Register adds or replaces the capability for its kind.
func (r *Registry) Register(c Capability) {
	r.caps[c.Kind()] = c
}

// Lookup returns the capability for kind.
func (r *Registry) Lookup(kind script.Kind) (Capability, error) {
	c, ok := r.caps[kind]
	if !ok {
		return nil, services.Wrap(services.ErrPrecondition, "mediatype", "lookup", fmt.Sprintf("no capability for media type %q", kind), nil)
	}
	return c, nil
}

// sourceCapability copies or downloads a local/remote image or movie. Movies
// without a source come from the movie generator.
type sourceCapability struct {
	kind   script.Kind
	visual Visual
}

func (c sourceCapability) Kind() script.Kind { return c.kind }

func (c sourceCapability) Visual() Visual { return c.visual }

func (c sourceCapability) OutputPath(req Request) string {
	ext := ""
	if req.Media.Source != nil {
		ext = sourceExt(*req.Media.Source)
	}
	if c.visual == VisualMovie {
		return req.Layout.BeatMoviePath(req.Key, ext)
	}
	return req.Layout.BeatImagePath(req.Key, ext)
}

func (c sourceCapability) Produce(ctx context.Context, req Request, tools Tools) (artifact.Output, error) {
	if req.Media.Source != nil && !req.Media.Source.IsZero() {
		data, err := tools.Fetch(ctx, *req.Media.Source)
		if err != nil {
			return artifact.Output{}, err
		}
		return artifact.BufferOutput(data), nil
	}
	if c.visual == VisualMovie && strings.TrimSpace(req.Media.Prompt) != "" {
		var duration *float64
		if req.Index >= 0 && req.Index < len(req.Script.Beats) {
			duration = req.Script.Beats[req.Index].Duration
		}
		return tools.GenerateMovie(ctx, MovieRequest{
			Key:      req.Key,
			Prompt:   req.Media.Prompt,
			Duration: duration,
			Width:    req.Width,
			Height:   req.Height,
			Output:   c.OutputPath(req),
		})
	}
	return artifact.Output{}, services.Wrap(services.ErrPrecondition, string(c.kind), "produce", fmt.Sprintf("beat %q has no source", req.Key), nil)
}

func (c sourceCapability) Preview(req Request) (string, error) {
	if req.Media.Source == nil || req.Media.Source.IsZero() {
		if c.visual == VisualMovie {
			return `<p class="movie-prompt">` + escape(req.Media.Prompt) + `</p>`, nil
		}
		return "", nil
	}
	src := escape(req.Media.Source.Location())
	if c.visual == VisualMovie {
		return `<video src="` + src + `" controls></video>`, nil
	}
	return `<img src="` + src + `" alt="` + escape(req.Key) + `">`, nil
}

// referenceCapability resolves a named script reference to an image source.
type referenceCapability struct{}

func (referenceCapability) Kind() script.Kind { return script.KindReference }

func (referenceCapability) Visual() Visual { return VisualImage }

func (referenceCapability) resolve(req Request) (Request, error) {
	src, ok := req.Script.ResolveReference(req.Media.Name)
	if !ok {
		return req, services.Wrap(services.ErrPrecondition, "reference", "resolve", fmt.Sprintf("unknown reference %q", req.Media.Name), nil)
	}
	req.Media = script.MediaDescriptor{Type: script.KindImage, Source: &src}
	return req, nil
}

func (c referenceCapability) OutputPath(req Request) string {
	resolved, err := c.resolve(req)
	if err != nil {
		return req.Layout.BeatImagePath(req.Key, "")
	}
	return sourceCapability{kind: script.KindImage, visual: VisualImage}.OutputPath(resolved)
}

func (c referenceCapability) Produce(ctx context.Context, req Request, tools Tools) (artifact.Output, error) {
	resolved, err := c.resolve(req)
	if err != nil {
		return artifact.Output{}, err
	}
	return sourceCapability{kind: script.KindImage, visual: VisualImage}.Produce(ctx, resolved, tools)
}

func (c referenceCapability) Preview(req Request) (string, error) {
	resolved, err := c.resolve(req)
	if err != nil {
		return "", err
	}
	return sourceCapability{kind: script.KindImage, visual: VisualImage}.Preview(resolved)
}

// renderedCapability turns markup-style media into a PNG via the renderer.
type renderedCapability struct {
	kind script.Kind
}

func (c renderedCapability) Kind() script.Kind { return c.kind }

func (c renderedCapability) Visual() Visual { return VisualImage }

func (c renderedCapability) OutputPath(req Request) string {
	return req.Layout.BeatImagePath(req.Key, ".png")
}

func (c renderedCapability) Produce(ctx context.Context, req Request, tools Tools) (artifact.Output, error) {
	markup, err := c.Preview(req)
	if err != nil {
		return artifact.Output{}, err
	}
	return tools.Render(ctx, RenderRequest{
		Kind:   c.kind,
		Key:    req.Key,
		Markup: markup,
		Width:  req.Width,
		Height: req.Height,
		Output: c.OutputPath(req),
	})
}

func (c renderedCapability) Preview(req Request) (string, error) {
	return renderMarkup(req.Media)
}

// silentCapability covers kinds with no visual of their own.
type silentCapability struct {
	kind script.Kind
}

func (c silentCapability) Kind() script.Kind { return c.kind }

func (silentCapability) Visual() Visual { return VisualNone }

func (silentCapability) OutputPath(Request) string { return "" }

func (c silentCapability) Produce(context.Context, Request, Tools) (artifact.Output, error) {
	return artifact.Output{}, services.Wrap(services.ErrPrecondition, string(c.kind), "produce", "media type has no visual artifact", nil)
}

func (silentCapability) Preview(Request) (string, error) { return "", nil }

func sourceExt(src script.Source) string {
	location := src.Location()
	if idx := strings.IndexAny(location, "?#"); idx >= 0 {
		location = location[:idx]
	}
	return filepath.Ext(location)
}
