// Package assemble turns a populated studio state into one encoder
// invocation: the timeline filter graph, optional embedded BGM mix, and the
// explicit output arguments.
package assemble

import (
	"fmt"
	"strconv"

	"mulmocast/internal/audiomix"
	"mulmocast/internal/filtergraph"
	"mulmocast/internal/mediatype"
	"mulmocast/internal/services"
	"mulmocast/internal/studio"
	"mulmocast/internal/timeline"
)

const stageName = "assemble"

// Options carries the timeline settings and output codecs.
type Options struct {
	Timeline     timeline.Options
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
}

// AudioSource selects the soundtrack. Mix embeds a BGM plan in the graph;
// otherwise NarrationPath, when set, is mapped as-is. Neither yields a
// silent movie.
type AudioSource struct {
	NarrationPath string
	Mix           *audiomix.Plan
	// IntroPadding and OutroPadding stretch the picture around an external
	// track that already carries them. Ignored when Mix is set.
	IntroPadding float64
	OutroPadding float64
}

func (a AudioSource) padding() (float64, float64) {
	if a.Mix != nil {
		return a.Mix.IntroPadding, a.Mix.OutroPadding
	}
	return a.IntroPadding, a.OutroPadding
}

// Plan is one encoder invocation minus the output path.
type Plan struct {
	Inputs      []filtergraph.Input
	Graph       filtergraph.Graph
	FilterGraph string
	VideoLabel  string
	AudioMap    string
	Args        []string
	Duration    float64
}

// Command returns the full argument list writing to output.
func (p Plan) Command(output string) []string {
	args := make([]string, 0, len(p.Args)+1)
	args = append(args, p.Args...)
	return append(args, output)
}

// Assembler builds movie plans.
type Assembler struct {
	opts     Options
	registry *mediatype.Registry
}

// New returns an assembler. A nil registry uses mediatype.Default.
func New(opts Options, registry *mediatype.Registry) *Assembler {
	if registry == nil {
		registry = mediatype.Default()
	}
	return &Assembler{opts: opts, registry: registry}
}

// Segments resolves each beat to a timeline segment. Beats whose media has no
// visual extend the previous segment instead of starting one.
func (a *Assembler) Segments(state *studio.State) ([]timeline.Segment, []string, error) {
	var segments []timeline.Segment
	var paths []string
	for i, beat := range state.Beats {
		visual := mediatype.VisualImage
		if state.Script != nil && i < len(state.Script.Beats) {
			capability, err := a.registry.Lookup(state.Script.Beats[i].Media.Type)
			if err != nil {
				return nil, nil, err
			}
			visual = capability.Visual()
		}

		if visual == mediatype.VisualNone && beat.MovieFile == "" && beat.ImageFile == "" {
			if len(segments) == 0 {
				return nil, nil, services.Wrap(services.ErrPrecondition, stageName, "resolve sources",
					fmt.Sprintf("beat %q has no visual and no earlier beat to extend", beat.Key), nil)
			}
			prev := &segments[len(segments)-1]
			if beat.Duration == nil || prev.Duration == nil {
				return nil, nil, services.Wrap(services.ErrPrecondition, stageName, "resolve sources",
					fmt.Sprintf("beat %q has no resolved duration", beat.Key), nil)
			}
			extended := *prev.Duration + *beat.Duration
			prev.Duration = &extended
			continue
		}

		seg := timeline.Segment{Input: len(segments), Duration: copyDuration(beat.Duration)}
		switch {
		case beat.MovieFile != "":
			seg.Kind = timeline.SourceVideo
			paths = append(paths, beat.MovieFile)
		case beat.ImageFile != "":
			seg.Kind = timeline.SourceImage
			paths = append(paths, beat.ImageFile)
		default:
			return nil, nil, services.Wrap(services.ErrPrecondition, stageName, "resolve sources",
				fmt.Sprintf("beat %q has neither image nor movie", beat.Key), nil)
		}
		segments = append(segments, seg)
	}
	return segments, paths, nil
}

// Build composes the timeline for state and attaches audio.
func (a *Assembler) Build(state *studio.State, audio AudioSource) (Plan, error) {
	segments, paths, err := a.Segments(state)
	if err != nil {
		return Plan{}, err
	}
	if intro, outro := audio.padding(); len(segments) > 0 {
		padSegments(segments, intro, outro)
	}
	composed, err := timeline.Compose(segments, a.opts.Timeline)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Graph:      composed.Graph,
		VideoLabel: composed.Output,
		Duration:   timeline.TotalDuration(segments),
	}
	for _, path := range paths {
		plan.Inputs = append(plan.Inputs, filtergraph.Input{Path: path})
	}
	switch {
	case audio.Mix != nil:
		offset := len(plan.Inputs)
		plan.Inputs = append(plan.Inputs, audio.Mix.Inputs...)
		plan.Graph.Append(audio.Mix.Graph.Shift(offset).Chains...)
		plan.AudioMap = filtergraph.Pad(audio.Mix.Output)
	case audio.NarrationPath != "":
		plan.AudioMap = filtergraph.StreamLabel(len(plan.Inputs), "a")
		plan.Inputs = append(plan.Inputs, filtergraph.Input{Path: audio.NarrationPath})
	}
	if err := plan.Graph.Validate(); err != nil {
		return Plan{}, services.Wrap(services.ErrGeneration, stageName, "build graph", "", err)
	}
	plan.FilterGraph = plan.Graph.String()
	plan.Args = a.args(plan)
	return plan, nil
}

func (a *Assembler) args(plan Plan) []string {
	opts := a.opts
	fps := opts.Timeline.FPS
	if fps <= 0 {
		fps = timeline.DefaultOptions().FPS
	}
	args := filtergraph.InputArgs(plan.Inputs)
	args = append(args,
		"-filter_complex", plan.FilterGraph,
		"-map", filtergraph.Pad(plan.VideoLabel),
	)
	if plan.AudioMap != "" {
		args = append(args, "-map", plan.AudioMap)
	}
	if opts.VideoCodec != "" {
		args = append(args, "-c:v", opts.VideoCodec)
	}
	args = append(args, "-r", strconv.Itoa(fps), "-pix_fmt", "yuv420p")
	if plan.AudioMap != "" {
		if opts.AudioCodec != "" {
			args = append(args, "-c:a", opts.AudioCodec)
		}
		if opts.AudioBitrate != "" {
			args = append(args, "-b:a", opts.AudioBitrate)
		}
	} else {
		args = append(args, "-an")
	}
	return append(args, "-t", filtergraph.FormatValue(plan.Duration))
}

// padSegments stretches the first and last segments so the picture covers
// the BGM intro and outro.
func padSegments(segments []timeline.Segment, intro, outro float64) {
	if first := segments[0].Duration; first != nil && intro > 0 {
		d := *first + intro
		segments[0].Duration = &d
	}
	if last := segments[len(segments)-1].Duration; last != nil && outro > 0 {
		d := *last + outro
		segments[len(segments)-1].Duration = &d
	}
}

func copyDuration(d *float64) *float64 {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
