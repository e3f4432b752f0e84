package timeline

import (
	"errors"
	"strings"
	"testing"

	"mulmocast/internal/services"
)

func seconds(v float64) *float64 { return &v }

func TestComposeTwoImageBeatsFixture(t *testing.T) {
	segments := []Segment{
		{Input: 0, Kind: SourceImage, Duration: seconds(5)},
		{Input: 1, Kind: SourceImage, Duration: seconds(5)},
	}
	result, err := Compose(segments, Options{Width: 1280, Height: 720, FPS: 30})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := []string{
		"[0:v]loop=loop=-1:size=1:start=0,trim=duration=5,fps=30,setpts=PTS-STARTPTS,scale=w=1280:h=720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,format=yuv420p[v0]",
		"[1:v]loop=loop=-1:size=1:start=0,trim=duration=5,fps=30,setpts=PTS-STARTPTS,scale=w=1280:h=720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,format=yuv420p[v1]",
		"[v0][v1]concat=n=2:v=1:a=0[concat_video]",
	}
	got := result.Graph.Lines()
	if len(got) != len(want) {
		t.Fatalf("expected %d chains, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain %d:\n got %q\nwant %q", i, got[i], want[i])
		}
	}
	if result.Output != ConcatLabel {
		t.Fatalf("unexpected output label %q", result.Output)
	}
	if err := result.Graph.Validate(); err != nil {
		t.Fatalf("graph invalid: %v", err)
	}
}

func TestBeatChainVideoStartsWithTpad(t *testing.T) {
	chain := BeatChain(2, Segment{Input: 4, Kind: SourceVideo, Duration: seconds(3.5)}, Options{Width: 640, Height: 360, FPS: 24, EndGuard: 10})
	want := "[4:v]tpad=stop_mode=clone:stop_duration=10,trim=duration=3.5,fps=24,setpts=PTS-STARTPTS,scale=w=640:h=360:force_original_aspect_ratio=decrease,pad=640:360:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,format=yuv420p[v2]"
	if got := chain.String(); got != want {
		t.Fatalf("\n got %q\nwant %q", got, want)
	}
}

func TestConcatChainForManyBeats(t *testing.T) {
	got := ConcatChain(4).String()
	want := "[v0][v1][v2][v3]concat=n=4:v=1:a=0[concat_video]"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestComposeRejectsUndefinedDurationBeforeBuilding(t *testing.T) {
	segments := []Segment{
		{Input: 0, Kind: SourceImage, Duration: seconds(2)},
		{Input: 1, Kind: SourceVideo},
	}
	result, err := Compose(segments, DefaultOptions())
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if len(result.Graph.Chains) != 0 {
		t.Fatalf("expected no chains built, got %d", len(result.Graph.Chains))
	}
	if !strings.Contains(err.Error(), "beat 1") {
		t.Fatalf("expected beat index in error, got %v", err)
	}
}

func TestComposeZeroBeatsHasNoConcat(t *testing.T) {
	result, err := Compose(nil, DefaultOptions())
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if len(result.Graph.Chains) != 0 {
		t.Fatal("expected empty graph")
	}
}

func TestComposeSingleBeatPolicy(t *testing.T) {
	segments := []Segment{{Input: 0, Kind: SourceImage, Duration: seconds(4)}}

	always, err := Compose(segments, Options{SingleBeat: ConcatAlways})
	if err != nil {
		t.Fatalf("Compose always: %v", err)
	}
	if len(always.Graph.Chains) != 2 || always.Output != ConcatLabel {
		t.Fatalf("expected concat stage with always policy, got %v", always.Graph.Lines())
	}
	if got := always.Graph.Chains[1].String(); got != "[v0]concat=n=1:v=1:a=0[concat_video]" {
		t.Fatalf("unexpected concat %q", got)
	}

	bypass, err := Compose(segments, Options{SingleBeat: ConcatBypass})
	if err != nil {
		t.Fatalf("Compose bypass: %v", err)
	}
	if len(bypass.Graph.Chains) != 1 || bypass.Output != "v0" {
		t.Fatalf("expected bypass to skip concat, got %v output %q", bypass.Graph.Lines(), bypass.Output)
	}

	if _, err := Compose(segments, Options{SingleBeat: "never"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown policy, got %v", err)
	}
}

func TestDefaultsApplyToZeroOptions(t *testing.T) {
	chain := BeatChain(0, Segment{Kind: SourceImage, Duration: seconds(1)}, Options{})
	if !strings.Contains(chain.String(), "fps=30") || !strings.Contains(chain.String(), "pad=1280:720") {
		t.Fatalf("expected defaults in %q", chain.String())
	}
	if got := TotalDuration([]Segment{{Duration: seconds(1.5)}, {}, {Duration: seconds(2)}}); got != 3.5 {
		t.Fatalf("TotalDuration = %v", got)
	}
}
