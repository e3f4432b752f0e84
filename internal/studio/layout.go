package studio

import (
	"path/filepath"
	"strings"
)

// Layout places every artifact of one script under Root.
//
//	Root/Name_studio.json
//	Root/Name.mp4, Root/Name_<lang>.mp4
//	Root/Name_narration.mp3, Root/Name_<lang>_narration.mp3
//	Root/audio/Name/<key>.mp3, Root/audio/Name/<lang>/<key>.mp3
//	Root/images/Name/<key>.png
//	Root/movies/Name/<key>.mp4
type Layout struct {
	Root string
	Name string
}

func (l Layout) StudioPath() string {
	return filepath.Join(l.Root, l.Name+"_studio.json")
}

// MoviePath is the final rendered movie for lang; empty lang is the script language.
func (l Layout) MoviePath(lang string) string {
	return filepath.Join(l.Root, l.Name+langSuffix(lang)+".mp4")
}

func (l Layout) AudioDir() string {
	return filepath.Join(l.Root, "audio", l.Name)
}

func (l Layout) ImageDir() string {
	return filepath.Join(l.Root, "images", l.Name)
}

func (l Layout) MovieDir() string {
	return filepath.Join(l.Root, "movies", l.Name)
}

// BeatAudioPath is the narration clip for one beat. Clips for a non-empty
// lang live in their own directory so no beat key can alias another
// beat's translation.
func (l Layout) BeatAudioPath(key, lang string) string {
	if lang = strings.TrimSpace(lang); lang != "" {
		return filepath.Join(l.AudioDir(), lang, key+".mp3")
	}
	return filepath.Join(l.AudioDir(), key+".mp3")
}

// NarrationPath is the concatenated narration track.
func (l Layout) NarrationPath(lang string) string {
	return filepath.Join(l.Root, l.Name+langSuffix(lang)+"_narration.mp3")
}

// MixedAudioPath is narration mixed with background music.
func (l Layout) MixedAudioPath(lang string) string {
	return filepath.Join(l.Root, l.Name+langSuffix(lang)+"_bgm.mp3")
}

// BeatImagePath keeps ext when given (".jpg"), else uses ".png".
func (l Layout) BeatImagePath(key, ext string) string {
	return filepath.Join(l.ImageDir(), key+normalizeExt(ext, ".png"))
}

// BeatMoviePath keeps ext when given (".mov"), else uses ".mp4".
func (l Layout) BeatMoviePath(key, ext string) string {
	return filepath.Join(l.MovieDir(), key+normalizeExt(ext, ".mp4"))
}

func langSuffix(lang string) string {
	if lang = strings.TrimSpace(lang); lang == "" {
		return ""
	}
	return "_" + lang
}

func normalizeExt(ext, fallback string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return fallback
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
