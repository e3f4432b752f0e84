package script

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mulmocast/internal/services"
)

// Kind tags the media descriptor variant.
type Kind string

const (
	KindImage     Kind = "image"
	KindMovie     Kind = "movie"
	KindMarkdown  Kind = "markdown"
	KindChart     Kind = "chart"
	KindMermaid   Kind = "mermaid"
	KindTextSlide Kind = "textSlide"
	KindHTML      Kind = "html"
	KindSlide     Kind = "slide"
	KindVoiceOver Kind = "voiceOver"
	KindReference Kind = "reference"
	KindAudio     Kind = "audio"
)

var knownKinds = map[Kind]struct{}{
	KindImage: {}, KindMovie: {}, KindMarkdown: {}, KindChart: {}, KindMermaid: {},
	KindTextSlide: {}, KindHTML: {}, KindSlide: {}, KindVoiceOver: {}, KindReference: {}, KindAudio: {},
}

// Kinds lists every media kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(knownKinds))
	for kind := range knownKinds {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether k is one of the closed set of media kinds.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Source points at a local file or a remote URL.
type Source struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Location returns the URL when set, else the path.
func (s Source) Location() string {
	if strings.TrimSpace(s.URL) != "" {
		return strings.TrimSpace(s.URL)
	}
	return strings.TrimSpace(s.Path)
}

// IsRemote reports whether the source is fetched over HTTP(S).
func (s Source) IsRemote() bool {
	return IsURL(s.Location())
}

// IsZero reports whether the source names nothing.
func (s Source) IsZero() bool {
	return s.Location() == ""
}

// IsURL reports whether value is an http(s) URL.
func IsURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// MediaDescriptor is the per-beat visual (or audio) description. Type selects
// which of the remaining fields are meaningful.
type MediaDescriptor struct {
	Type Kind `json:"type" yaml:"type"`

	// image, movie, audio
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`
	// movie without a source: prompt for the movie generator
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	// markdown
	Markdown string `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	// html
	HTML string `json:"html,omitempty" yaml:"html,omitempty"`
	// textSlide, slide
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Bullets  []string `json:"bullets,omitempty" yaml:"bullets,omitempty"`
	Theme    string   `json:"theme,omitempty" yaml:"theme,omitempty"`
	// chart
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	// mermaid
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
	// reference
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Beat is one narration unit.
type Beat struct {
	ID       string            `json:"id,omitempty" yaml:"id,omitempty"`
	Speaker  string            `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text     string            `json:"text" yaml:"text"`
	Duration *float64          `json:"duration,omitempty" yaml:"duration,omitempty"`
	Media    MediaDescriptor   `json:"media" yaml:"media"`
	Texts    map[string]string `json:"texts,omitempty" yaml:"texts,omitempty"`
}

// Canvas is the output frame size.
type Canvas struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// AudioParams overrides the configured narration/BGM mixing values. Nil
// fields fall back to configuration.
type AudioParams struct {
	BGM          *Source  `json:"bgm,omitempty" yaml:"bgm,omitempty"`
	IntroPadding *float64 `json:"introPadding,omitempty" yaml:"introPadding,omitempty"`
	OutroPadding *float64 `json:"outroPadding,omitempty" yaml:"outroPadding,omitempty"`
	AudioVolume  *float64 `json:"audioVolume,omitempty" yaml:"audioVolume,omitempty"`
	BGMVolume    *float64 `json:"bgmVolume,omitempty" yaml:"bgmVolume,omitempty"`
}

// Script is the immutable input document.
type Script struct {
	Title      string            `json:"title" yaml:"title"`
	Lang       string            `json:"lang,omitempty" yaml:"lang,omitempty"`
	Canvas     *Canvas           `json:"canvasSize,omitempty" yaml:"canvasSize,omitempty"`
	Audio      AudioParams       `json:"audioParams,omitempty" yaml:"audioParams,omitempty"`
	References map[string]Source `json:"references,omitempty" yaml:"references,omitempty"`
	Beats      []Beat            `json:"beats" yaml:"beats"`
}

// BeatKey returns the beat's identity key: its ID when set, otherwise the
// decimal index so artifact names stay stable across runs.
func (s *Script) BeatKey(index int) string {
	if index >= 0 && index < len(s.Beats) {
		if id := strings.TrimSpace(s.Beats[index].ID); id != "" {
			return id
		}
	}
	return strconv.Itoa(index)
}

// TextFor returns the narration for lang. The script language (or an empty
// lang) maps to Text; other languages come from Texts.
func (s *Script) TextFor(index int, lang string) (string, bool) {
	if index < 0 || index >= len(s.Beats) {
		return "", false
	}
	beat := s.Beats[index]
	if lang == "" || strings.EqualFold(lang, s.Lang) {
		return beat.Text, true
	}
	text, ok := beat.Texts[lang]
	return text, ok
}

// ResolveReference returns the source registered under name.
func (s *Script) ResolveReference(name string) (Source, bool) {
	src, ok := s.References[strings.TrimSpace(name)]
	if !ok || src.IsZero() {
		return Source{}, false
	}
	return src, true
}

// Validate checks structural rules the pipeline relies on: known media
// kinds, required sources, resolvable references, and unique beat keys.
func (s *Script) Validate() error {
	seen := make(map[string]int, len(s.Beats))
	for i, beat := range s.Beats {
		key := s.BeatKey(i)
		if prev, ok := seen[key]; ok {
			return invalid(fmt.Sprintf("beats %d and %d share key %q", prev, i, key))
		}
		seen[key] = i
		if beat.Duration != nil && *beat.Duration < 0 {
			return invalid(fmt.Sprintf("beat %q has negative duration", key))
		}
		if err := s.validateMedia(key, beat.Media); err != nil {
			return err
		}
	}
	if s.Canvas != nil && (s.Canvas.Width <= 0 || s.Canvas.Height <= 0) {
		return invalid("canvasSize must have positive width and height")
	}
	return nil
}

func (s *Script) validateMedia(key string, media MediaDescriptor) error {
	if !media.Type.Valid() {
		return invalid(fmt.Sprintf("beat %q has unknown media type %q", key, media.Type))
	}
	switch media.Type {
	case KindImage, KindAudio:
		if media.Source == nil || media.Source.IsZero() {
			return invalid(fmt.Sprintf("beat %q %s media requires a source", key, media.Type))
		}
	case KindMovie:
		if (media.Source == nil || media.Source.IsZero()) && strings.TrimSpace(media.Prompt) == "" {
			return invalid(fmt.Sprintf("beat %q movie media requires a source or prompt", key))
		}
	case KindReference:
		if _, ok := s.ResolveReference(media.Name); !ok {
			return invalid(fmt.Sprintf("beat %q references unknown image %q", key, media.Name))
		}
	}
	return nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrPrecondition, "script", "validate", message, nil)
}
