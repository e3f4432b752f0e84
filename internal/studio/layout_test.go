package studio

import (
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	l := Layout{Root: "/out", Name: "demo"}
	cases := map[string]string{
		l.StudioPath():                  "/out/demo_studio.json",
		l.MoviePath(""):                 "/out/demo.mp4",
		l.MoviePath("ja"):               "/out/demo_ja.mp4",
		l.BeatAudioPath("intro", ""):    "/out/audio/demo/intro.mp3",
		l.BeatAudioPath("0", "ja"):      "/out/audio/demo/ja/0.mp3",
		l.NarrationPath(""):             "/out/demo_narration.mp3",
		l.NarrationPath("ja"):           "/out/demo_ja_narration.mp3",
		l.MixedAudioPath("en"):          "/out/demo_en_bgm.mp3",
		l.BeatImagePath("1", ""):        "/out/images/demo/1.png",
		l.BeatImagePath("1", "JPG"):     "/out/images/demo/1.jpg",
		l.BeatMoviePath("clip", ".MOV"): "/out/movies/demo/clip.mov",
		l.BeatMoviePath("clip", ""):     "/out/movies/demo/clip.mp4",
	}
	for got, want := range cases {
		if got != filepath.FromSlash(want) {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestBeatAudioPathsNeverAlias(t *testing.T) {
	l := Layout{Root: "/out", Name: "demo"}
	keys := []string{"intro", "intro_ja", "ja", "demo", "demo_ja"}
	langs := []string{"", "ja"}
	seen := make(map[string]string)
	for _, key := range keys {
		for _, lang := range langs {
			path := l.BeatAudioPath(key, lang)
			id := key + "/" + lang
			if prev, ok := seen[path]; ok {
				t.Fatalf("%s and %s both map to %s", prev, id, path)
			}
			seen[path] = id
		}
	}
	for _, lang := range langs {
		if prev, ok := seen[l.NarrationPath(lang)]; ok {
			t.Fatalf("narration for %q aliases beat clip %s", lang, prev)
		}
	}
}
