package audiomix

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mulmocast/internal/fileutil"
	"mulmocast/internal/filtergraph"
	"mulmocast/internal/logging"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
)

const (
	stageName = "addBGM"

	// DefaultSampleRate is the mix sample rate when none is configured.
	DefaultSampleRate = 44100

	MusicLabel   = "music"
	VoiceLabel   = "voice"
	MixedLabel   = "mixed"
	TrimmedLabel = "trimmed"
	FadedLabel   = "faded"
)

// Prober reports media durations in seconds.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Input describes one BGM mix request.
type Input struct {
	NarrationPath string
	// Music is a local path or an http(s) URL read directly by the encoder.
	Music        string
	IntroPadding float64
	OutroPadding float64
	AudioVolume  float64
	BGMVolume    float64
	SampleRate   int
}

// Plan is a ready-to-run mix: input 0 is the looped music, input 1 the
// narration.
type Plan struct {
	Inputs         []filtergraph.Input
	Graph          filtergraph.Graph
	Output         string
	SpeechDuration float64
	IntroPadding   float64
	OutroPadding   float64
	TotalDuration  float64
	FadeStart      float64
}

// FilterGraph is the serialized graph text.
func (p Plan) FilterGraph() string {
	return p.Graph.String()
}

// Args returns encoder arguments rendering the mix to output.
func (p Plan) Args(output, codec, bitrate string) []string {
	args := filtergraph.InputArgs(p.Inputs)
	args = append(args,
		"-filter_complex", p.FilterGraph(),
		"-map", filtergraph.Pad(p.Output),
		"-t", filtergraph.FormatValue(p.TotalDuration),
	)
	if codec != "" {
		args = append(args, "-c:a", codec)
	}
	if bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	return append(args, output)
}

// Mixer plans BGM mixes.
type Mixer struct {
	prober Prober
	logger *slog.Logger
}

// NewMixer returns a mixer probing narration through prober.
func NewMixer(prober Prober, logger *slog.Logger) *Mixer {
	return &Mixer{prober: prober, logger: logging.NewComponentLogger(logger, "audiomix")}
}

// Mix checks that the narration and local music exist, probes the narration
// length, and builds the mix plan. Nothing is probed when a precondition
// fails.
func (m *Mixer) Mix(ctx context.Context, in Input) (Plan, error) {
	ctx = services.WithStage(ctx, stageName)
	if err := checkInput(in); err != nil {
		return Plan{}, err
	}
	if m.prober == nil {
		return Plan{}, services.Wrap(services.ErrConfiguration, stageName, "probe", "no duration prober configured", nil)
	}
	speech, err := m.prober.ProbeDuration(ctx, in.NarrationPath)
	if err != nil {
		return Plan{}, services.Wrap(services.ErrNetwork, stageName, "probe narration", in.NarrationPath, err)
	}
	plan := Build(in, speech)
	logging.WithContext(ctx, m.logger).Debug("bgm mix planned",
		logging.Float64("speech_duration", plan.SpeechDuration),
		logging.Float64("total_duration", plan.TotalDuration),
		logging.Float64("fade_start", plan.FadeStart),
		logging.Bool("remote_music", script.IsURL(in.Music)),
	)
	return plan, nil
}

func checkInput(in Input) error {
	if strings.TrimSpace(in.NarrationPath) == "" {
		return services.Wrap(services.ErrPrecondition, stageName, "check input", "no narration file", nil)
	}
	if !fileutil.Exists(in.NarrationPath) {
		return services.Wrap(services.ErrPrecondition, stageName, "check input", fmt.Sprintf("narration file %s does not exist", in.NarrationPath), nil)
	}
	if err := CheckMusic(in.Music); err != nil {
		return err
	}
	if in.IntroPadding < 0 || in.OutroPadding < 0 {
		return services.Wrap(services.ErrPrecondition, stageName, "check input", "padding must not be negative", nil)
	}
	return nil
}

// Build assembles the mix plan for a narration of speech seconds. With no
// outro padding the fade stage is omitted and the trimmed mix is the output.
func Build(in Input, speech float64) Plan {
	total := speech + in.IntroPadding + in.OutroPadding
	fadeStart := total - in.OutroPadding
	plan := Plan{
		Inputs: []filtergraph.Input{
			{Path: in.Music, Options: []string{"-stream_loop", "-1"}},
			{Path: in.NarrationPath},
		},
		Graph:          Chains(0, 1, in, total),
		SpeechDuration: speech,
		IntroPadding:   in.IntroPadding,
		OutroPadding:   in.OutroPadding,
		TotalDuration:  total,
		FadeStart:      fadeStart,
	}
	plan.Output = plan.Graph.Chains[len(plan.Graph.Chains)-1].Outputs[0]
	return plan
}

// Chains builds the mix chains reading music from input musicIndex and
// narration from voiceIndex.
func Chains(musicIndex, voiceIndex int, in Input, total float64) filtergraph.Graph {
	delay := int64(in.IntroPadding*1000 + 0.5)
	var g filtergraph.Graph
	g.Append(
		filtergraph.Chain{
			Inputs:  []string{filtergraph.StreamLabel(musicIndex, "a")},
			Filters: []filtergraph.Filter{normalize(in.SampleRate), filtergraph.New("volume", filtergraph.Pos(in.BGMVolume))},
			Outputs: []string{MusicLabel},
		},
		filtergraph.Chain{
			Inputs: []string{filtergraph.StreamLabel(voiceIndex, "a")},
			Filters: []filtergraph.Filter{
				normalize(in.SampleRate),
				filtergraph.New("volume", filtergraph.Pos(in.AudioVolume)),
				filtergraph.New("adelay", filtergraph.Pos(fmt.Sprintf("%d|%d", delay, delay))),
			},
			Outputs: []string{VoiceLabel},
		},
		filtergraph.Chain{
			Inputs:  []string{MusicLabel, VoiceLabel},
			Filters: []filtergraph.Filter{filtergraph.New("amix", filtergraph.KV("inputs", 2), filtergraph.KV("duration", "longest"))},
			Outputs: []string{MixedLabel},
		},
		filtergraph.Chain{
			Inputs:  []string{MixedLabel},
			Filters: []filtergraph.Filter{filtergraph.New("atrim", filtergraph.KV("start", 0), filtergraph.KV("end", total))},
			Outputs: []string{TrimmedLabel},
		},
	)
	if in.OutroPadding > 0 {
		g.Append(filtergraph.Chain{
			Inputs: []string{TrimmedLabel},
			Filters: []filtergraph.Filter{filtergraph.New("afade",
				filtergraph.KV("t", "out"),
				filtergraph.KV("st", total-in.OutroPadding),
				filtergraph.KV("d", in.OutroPadding),
			)},
			Outputs: []string{FadedLabel},
		})
	}
	return g
}

// normalize converts a stream to planar float stereo at sampleRate.
func normalize(sampleRate int) filtergraph.Filter {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return filtergraph.New("aformat",
		filtergraph.KV("sample_fmts", "fltp"),
		filtergraph.KV("sample_rates", sampleRate),
		filtergraph.KV("channel_layouts", "stereo"),
	)
}

// CheckMusic reports a precondition error when music is empty or names a
// local file that does not exist. URLs are not fetched.
func CheckMusic(music string) error {
	if strings.TrimSpace(music) == "" {
		return services.Wrap(services.ErrPrecondition, stageName, "check input", "no background music", nil)
	}
	if !script.IsURL(music) && !fileutil.Exists(music) {
		return services.Wrap(services.ErrPrecondition, stageName, "check input", fmt.Sprintf("music file %s does not exist", music), nil)
	}
	return nil
}
