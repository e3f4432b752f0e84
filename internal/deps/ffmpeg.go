package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// RequiredFilters are the ffmpeg filters the composed graphs use.
var RequiredFilters = []string{
	"adelay", "afade", "aformat", "amix", "anullsrc", "apad", "atrim",
	"concat", "format", "fps", "loop", "pad", "scale", "setpts", "setsar",
	"tpad", "trim", "volume",
}

var listFilters = func(ctx context.Context, binary string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output() //nolint:gosec
}

// CheckFFmpegFilters reports whether binary provides every required filter.
func CheckFFmpegFilters(ctx context.Context, binary string) Status {
	result := Status{
		Name:        "FFmpeg filters",
		Command:     strings.TrimSpace(binary),
		Description: "Filters used by the timeline and audio mix graphs",
	}
	if result.Command == "" {
		result.Command = "ffmpeg"
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	output, err := listFilters(ctx, result.Command)
	if err != nil {
		result.Detail = fmt.Sprintf("list filters: %v", err)
		return result
	}
	missing := missingFilters(parseFilterNames(output), RequiredFilters)
	if len(missing) > 0 {
		result.Detail = "missing filters: " + strings.Join(missing, ", ")
		return result
	}
	result.Available = true
	return result
}

// parseFilterNames reads `ffmpeg -filters` output. Filter rows look like
// " T.C amix              N->A       Audio mixing." after a "------" rule.
func parseFilterNames(output []byte) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !started {
			started = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names[fields[1]] = true
	}
	return names
}

func missingFilters(have map[string]bool, required []string) []string {
	var missing []string
	for _, name := range required {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
