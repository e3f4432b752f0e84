package audiomix

import (
	"fmt"
	"strconv"

	"mulmocast/internal/filtergraph"
	"mulmocast/internal/services"
)

// NarrationLabel is the output pad of the narration track graph.
const NarrationLabel = "narration"

// NarrationBeat is one beat's slot on the narration track. An empty
// AudioFile is filled with silence.
type NarrationBeat struct {
	AudioFile string
	Duration  float64
}

// NarrationPlan concatenates beat clips into one track whose beat
// boundaries match the video timeline.
type NarrationPlan struct {
	Inputs   []filtergraph.Input
	Graph    filtergraph.Graph
	Output   string
	Duration float64
}

// FilterGraph is the serialized graph text.
func (p NarrationPlan) FilterGraph() string {
	return p.Graph.String()
}

// Args returns encoder arguments rendering the track to output.
func (p NarrationPlan) Args(output, codec, bitrate string) []string {
	args := filtergraph.InputArgs(p.Inputs)
	args = append(args, "-filter_complex", p.FilterGraph(), "-map", filtergraph.Pad(p.Output))
	if codec != "" {
		args = append(args, "-c:a", codec)
	}
	if bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	return append(args, output)
}

// BuildNarration pads or trims every clip to its beat duration and
// concatenates the results.
func BuildNarration(beats []NarrationBeat, sampleRate int) (NarrationPlan, error) {
	if len(beats) == 0 {
		return NarrationPlan{}, services.Wrap(services.ErrPrecondition, "narration", "build", "no beats", nil)
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	plan := NarrationPlan{Output: NarrationLabel}
	labels := make([]string, len(beats))
	for i, beat := range beats {
		if beat.Duration <= 0 {
			return NarrationPlan{}, services.Wrap(services.ErrPrecondition, "narration", "build",
				fmt.Sprintf("beat %d has no resolved duration", i), nil)
		}
		input := len(plan.Inputs)
		labels[i] = "a" + strconv.Itoa(i)
		filters := []filtergraph.Filter{normalize(sampleRate)}
		if beat.AudioFile == "" {
			plan.Inputs = append(plan.Inputs, filtergraph.Input{
				Path:    fmt.Sprintf("anullsrc=r=%d:cl=stereo", sampleRate),
				Options: []string{"-f", "lavfi", "-t", filtergraph.FormatValue(beat.Duration)},
			})
		} else {
			plan.Inputs = append(plan.Inputs, filtergraph.Input{Path: beat.AudioFile})
			filters = append(filters, filtergraph.New("apad", filtergraph.KV("whole_dur", beat.Duration)))
		}
		filters = append(filters, filtergraph.New("atrim", filtergraph.KV("duration", beat.Duration)))
		plan.Graph.Append(filtergraph.Chain{
			Inputs:  []string{filtergraph.StreamLabel(input, "a")},
			Filters: filters,
			Outputs: []string{labels[i]},
		})
		plan.Duration += beat.Duration
	}
	plan.Graph.Append(filtergraph.Chain{
		Inputs: labels,
		Filters: []filtergraph.Filter{filtergraph.New("concat",
			filtergraph.KV("n", len(beats)),
			filtergraph.KV("v", 0),
			filtergraph.KV("a", 1),
		)},
		Outputs: []string{NarrationLabel},
	})
	return plan, nil
}
