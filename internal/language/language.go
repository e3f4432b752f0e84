package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// wordForms maps full language names to tags; x/text only parses codes.
var wordForms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
}

// Canonical converts a language code or word into its canonical BCP 47 form.
func Canonical(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("language: empty code")
	}
	if mapped, ok := wordForms[strings.ToLower(code)]; ok {
		code = mapped
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("language: parse %q: %w", code, err)
	}
	return tag.String(), nil
}

// NormalizeList canonicalizes and deduplicates languages, preserving order.
func NormalizeList(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		canonical, err := Canonical(code)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out, nil
}

// DisplayName returns the English name of a language, or the upper-cased input
// when the code cannot be parsed.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	canonical, err := Canonical(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	name := display.English.Tags().Name(language.Make(canonical))
	if name == "" {
		return strings.ToUpper(canonical)
	}
	return name
}
