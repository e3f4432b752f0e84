package assemble

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"mulmocast/internal/audiomix"
	"mulmocast/internal/filtergraph"
	"mulmocast/internal/script"
	"mulmocast/internal/services"
	"mulmocast/internal/studio"
	"mulmocast/internal/timeline"
)

func ptr(v float64) *float64 { return &v }

func newState(kinds []script.Kind, files []string, durations []*float64) *studio.State {
	s := &script.Script{}
	for _, kind := range kinds {
		s.Beats = append(s.Beats, script.Beat{Media: script.MediaDescriptor{Type: kind}})
	}
	state := studio.New(s)
	for i, file := range files {
		switch {
		case strings.HasSuffix(file, ".mp4"):
			state.Beats[i].MovieFile = file
		case file != "":
			state.Beats[i].ImageFile = file
		}
		state.Beats[i].Duration = durations[i]
	}
	return state
}

func testOptions() Options {
	return Options{
		Timeline:     timeline.Options{Width: 1280, Height: 720, FPS: 30, EndGuard: 10, SingleBeat: timeline.ConcatAlways},
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
	}
}

func TestBuildTwoImageBeats(t *testing.T) {
	state := newState(
		[]script.Kind{script.KindImage, script.KindTextSlide},
		[]string{"0.png", "1.png"},
		[]*float64{ptr(5), ptr(5)},
	)
	plan, err := New(testOptions(), nil).Build(state, AudioSource{NarrationPath: "narration.mp3"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	wantGraph := "[0:v]loop=loop=-1:size=1:start=0,trim=duration=5,fps=30,setpts=PTS-STARTPTS,scale=w=1280:h=720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,format=yuv420p[v0];" +
		"[1:v]loop=loop=-1:size=1:start=0,trim=duration=5,fps=30,setpts=PTS-STARTPTS,scale=w=1280:h=720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,format=yuv420p[v1];" +
		"[v0][v1]concat=n=2:v=1:a=0[concat_video]"
	if plan.FilterGraph != wantGraph {
		t.Fatalf("unexpected graph:\n got %s\nwant %s", plan.FilterGraph, wantGraph)
	}
	wantArgs := []string{
		"-i", "0.png", "-i", "1.png", "-i", "narration.mp3",
		"-filter_complex", wantGraph,
		"-map", "[concat_video]", "-map", "2:a",
		"-c:v", "libx264", "-r", "30", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		"-t", "10",
	}
	if !reflect.DeepEqual(plan.Args, wantArgs) {
		t.Fatalf("unexpected args:\n got %q\nwant %q", plan.Args, wantArgs)
	}
	if got := plan.Command("out.mp4"); got[len(got)-1] != "out.mp4" || len(got) != len(wantArgs)+1 {
		t.Fatalf("unexpected command %v", got)
	}
}

func TestBuildFoldsVoiceOverIntoPreviousVisual(t *testing.T) {
	state := newState(
		[]script.Kind{script.KindImage, script.KindVoiceOver, script.KindMovie},
		[]string{"0.png", "", "2.mp4"},
		[]*float64{ptr(3), ptr(2), ptr(4)},
	)
	plan, err := New(testOptions(), nil).Build(state, AudioSource{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	lines := plan.Graph.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 2 beat chains plus concat, got %q", lines)
	}
	if !strings.Contains(lines[0], "trim=duration=5,") {
		t.Fatalf("voice over should extend the first segment: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[1:v]tpad=stop_mode=clone:stop_duration=10,trim=duration=4,") {
		t.Fatalf("unexpected movie chain %s", lines[1])
	}
	if plan.Duration != 9 {
		t.Fatalf("duration %v", plan.Duration)
	}
	if plan.Args[len(plan.Args)-3] != "-an" {
		t.Fatalf("expected silent output, got %v", plan.Args)
	}
}

func TestBuildPreconditions(t *testing.T) {
	tests := []struct {
		name  string
		state *studio.State
	}{
		{"leading voice over", newState([]script.Kind{script.KindVoiceOver}, []string{""}, []*float64{ptr(1)})},
		{"no visual file", newState([]script.Kind{script.KindImage}, []string{""}, []*float64{ptr(1)})},
		{"unresolved duration", newState([]script.Kind{script.KindImage}, []string{"0.png"}, []*float64{nil})},
		{"empty", newState(nil, nil, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(testOptions(), nil).Build(tt.state, AudioSource{})
			if !errors.Is(err, services.ErrPrecondition) {
				t.Fatalf("expected precondition error, got %v", err)
			}
		})
	}
}

func TestBuildEmbedsBGMMix(t *testing.T) {
	state := newState(
		[]script.Kind{script.KindImage, script.KindImage},
		[]string{"0.png", "1.png"},
		[]*float64{ptr(4), ptr(6)},
	)
	mix := audiomix.Build(audiomix.Input{
		NarrationPath: "narration.mp3",
		Music:         "bgm.mp3",
		IntroPadding:  1,
		OutroPadding:  1,
		AudioVolume:   1,
		BGMVolume:     0.2,
	}, 10)

	plan, err := New(testOptions(), nil).Build(state, AudioSource{Mix: &mix})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	wantInputs := []filtergraph.Input{
		{Path: "0.png"},
		{Path: "1.png"},
		{Path: "bgm.mp3", Options: []string{"-stream_loop", "-1"}},
		{Path: "narration.mp3"},
	}
	if !reflect.DeepEqual(plan.Inputs, wantInputs) {
		t.Fatalf("unexpected inputs %+v", plan.Inputs)
	}
	lines := plan.Graph.Lines()
	if !strings.HasPrefix(lines[3], "[2:a]aformat=") || !strings.HasPrefix(lines[4], "[3:a]aformat=") {
		t.Fatalf("mix inputs should be offset past the video inputs: %q", lines[3:5])
	}
	if plan.AudioMap != "[faded]" {
		t.Fatalf("audio map %q", plan.AudioMap)
	}
	if plan.Duration != mix.TotalDuration {
		t.Fatalf("video duration %v should match mix %v", plan.Duration, mix.TotalDuration)
	}
	if !strings.Contains(lines[0], "trim=duration=5,") || !strings.Contains(lines[1], "trim=duration=7,") {
		t.Fatalf("intro/outro padding should stretch the edge segments: %q", lines[:2])
	}
}

func TestBuildSingleBeatBypass(t *testing.T) {
	opts := testOptions()
	opts.Timeline.SingleBeat = timeline.ConcatBypass
	state := newState([]script.Kind{script.KindImage}, []string{"0.png"}, []*float64{ptr(2)})
	plan, err := New(opts, nil).Build(state, AudioSource{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if plan.VideoLabel != "v0" || len(plan.Graph.Chains) != 1 {
		t.Fatalf("expected bypassed concat, got %q", plan.FilterGraph)
	}
}

func TestBuildPadsPictureForPremixedTrack(t *testing.T) {
	state := newState(
		[]script.Kind{script.KindImage, script.KindImage},
		[]string{"0.png", "1.png"},
		[]*float64{ptr(3), ptr(4)},
	)
	plan, err := New(testOptions(), nil).Build(state, AudioSource{NarrationPath: "mixed.mp3", IntroPadding: 1, OutroPadding: 2})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if plan.Duration != 10 {
		t.Fatalf("expected padded duration 10, got %v", plan.Duration)
	}
	if plan.AudioMap != "2:a" {
		t.Fatalf("expected external track mapped as 2:a, got %q", plan.AudioMap)
	}
	if !strings.Contains(plan.FilterGraph, "trim=duration=4,") || !strings.Contains(plan.FilterGraph, "trim=duration=6,") {
		t.Fatalf("edge segments should be padded: %s", plan.FilterGraph)
	}
}
