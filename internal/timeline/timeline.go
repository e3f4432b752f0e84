// Package timeline turns resolved beats into per-beat video chains and the
// concat stage that joins them.
package timeline

import (
	"fmt"
	"strconv"

	"mulmocast/internal/filtergraph"
	"mulmocast/internal/services"
)

const stageName = "timeline"

// ConcatLabel is the output pad produced by the concat stage.
const ConcatLabel = "concat_video"

// SourceKind distinguishes still images from video clips.
type SourceKind int

const (
	SourceImage SourceKind = iota
	SourceVideo
)

func (k SourceKind) String() string {
	switch k {
	case SourceImage:
		return "image"
	case SourceVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ConcatPolicy decides whether a one-beat timeline still runs through concat.
type ConcatPolicy string

const (
	ConcatAlways ConcatPolicy = "always"
	ConcatBypass ConcatPolicy = "bypass"
)

// Options configures the output canvas and timing.
type Options struct {
	Width  int
	Height int
	FPS    int
	// EndGuard is how many seconds of cloned last frame pad every video clip.
	EndGuard   float64
	SingleBeat ConcatPolicy
}

// DefaultOptions returns a 1280x720, 30 fps timeline with a 10 second guard.
func DefaultOptions() Options {
	return Options{Width: 1280, Height: 720, FPS: 30, EndGuard: 10, SingleBeat: ConcatAlways}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.FPS <= 0 {
		o.FPS = d.FPS
	}
	if o.EndGuard <= 0 {
		o.EndGuard = d.EndGuard
	}
	if o.SingleBeat == "" {
		o.SingleBeat = d.SingleBeat
	}
	return o
}

// Segment is one beat's visual input. Input is the encoder input index the
// chain reads from.
type Segment struct {
	Input    int
	Kind     SourceKind
	Duration *float64
}

// Result carries the composed graph and the label holding the final video.
type Result struct {
	Graph  filtergraph.Graph
	Output string
}

// BeatLabel is the output pad of beat index i.
func BeatLabel(index int) string {
	return "v" + strconv.Itoa(index)
}

// BeatChain builds the normalization chain for one segment. The duration
// must already be resolved; Compose checks that before calling it.
func BeatChain(index int, seg Segment, opts Options) filtergraph.Chain {
	opts = opts.withDefaults()
	duration := 0.0
	if seg.Duration != nil {
		duration = *seg.Duration
	}

	filters := make([]filtergraph.Filter, 0, 8)
	switch seg.Kind {
	case SourceVideo:
		filters = append(filters, filtergraph.New("tpad",
			filtergraph.KV("stop_mode", "clone"),
			filtergraph.KV("stop_duration", opts.EndGuard),
		))
	default:
		filters = append(filters, filtergraph.New("loop",
			filtergraph.KV("loop", -1),
			filtergraph.KV("size", 1),
			filtergraph.KV("start", 0),
		))
	}
	filters = append(filters,
		filtergraph.New("trim", filtergraph.KV("duration", duration)),
		filtergraph.New("fps", filtergraph.Pos(opts.FPS)),
		filtergraph.New("setpts", filtergraph.Pos("PTS-STARTPTS")),
		filtergraph.New("scale",
			filtergraph.KV("w", opts.Width),
			filtergraph.KV("h", opts.Height),
			filtergraph.KV("force_original_aspect_ratio", "decrease"),
		),
		filtergraph.New("pad",
			filtergraph.Pos(opts.Width),
			filtergraph.Pos(opts.Height),
			filtergraph.Pos("(ow-iw)/2"),
			filtergraph.Pos("(oh-ih)/2"),
			filtergraph.KV("color", "black"),
		),
		filtergraph.New("setsar", filtergraph.Pos(1)),
		filtergraph.New("format", filtergraph.Pos("yuv420p")),
	)
	return filtergraph.Chain{
		Inputs:  []string{filtergraph.StreamLabel(seg.Input, "v")},
		Filters: filters,
		Outputs: []string{BeatLabel(index)},
	}
}

// ConcatChain joins v0..v{n-1} into ConcatLabel, video only.
func ConcatChain(n int) filtergraph.Chain {
	inputs := make([]string, n)
	for i := range inputs {
		inputs[i] = BeatLabel(i)
	}
	return filtergraph.Chain{
		Inputs: inputs,
		Filters: []filtergraph.Filter{filtergraph.New("concat",
			filtergraph.KV("n", n),
			filtergraph.KV("v", 1),
			filtergraph.KV("a", 0),
		)},
		Outputs: []string{ConcatLabel},
	}
}

// Compose validates every segment and builds the beat chains plus concat.
func Compose(segments []Segment, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if len(segments) == 0 {
		return Result{}, services.Wrap(services.ErrPrecondition, stageName, "compose", "no beats to compose", nil)
	}
	for i, seg := range segments {
		if seg.Duration == nil {
			return Result{}, services.Wrap(services.ErrPrecondition, stageName, "compose",
				fmt.Sprintf("beat %d has no resolved duration", i), nil)
		}
		if *seg.Duration <= 0 {
			return Result{}, services.Wrap(services.ErrPrecondition, stageName, "compose",
				fmt.Sprintf("beat %d has non-positive duration %v", i, *seg.Duration), nil)
		}
	}
	switch opts.SingleBeat {
	case ConcatAlways, ConcatBypass:
	default:
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "compose",
			fmt.Sprintf("unknown single beat policy %q", opts.SingleBeat), nil)
	}

	var graph filtergraph.Graph
	for i, seg := range segments {
		graph.Append(BeatChain(i, seg, opts))
	}
	if len(segments) == 1 && opts.SingleBeat == ConcatBypass {
		return Result{Graph: graph, Output: BeatLabel(0)}, nil
	}
	graph.Append(ConcatChain(len(segments)))
	return Result{Graph: graph, Output: ConcatLabel}, nil
}

// TotalDuration sums resolved segment durations; unresolved ones count as 0.
func TotalDuration(segments []Segment) float64 {
	total := 0.0
	for _, seg := range segments {
		if seg.Duration != nil {
			total += *seg.Duration
		}
	}
	return total
}
