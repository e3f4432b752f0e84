package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mulmocast/internal/config"
	"mulmocast/internal/deps"
	"mulmocast/internal/fetch"
	"mulmocast/internal/script"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckMusic verifies the background music source: a readable local file or
// a reachable URL.
func CheckMusic(ctx context.Context, source, userAgent string) Result {
	const name = "Background music"

	source = strings.TrimSpace(source)
	if script.IsURL(source) {
		return CheckRemote(ctx, name, source, userAgent)
	}
	info, err := os.Stat(source)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", source, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", source)}
	}
	if err := unix.Access(source, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", source, err)}
	}
	return Result{Name: name, Passed: true, Detail: source}
}

// remoteCheckTimeout bounds each reachability check.
const remoteCheckTimeout = 5 * time.Second

// CheckRemote issues a HEAD request and passes on any 2xx/3xx answer.
func CheckRemote(ctx context.Context, name, url, userAgent string) Result {
	client := &fetch.Client{UserAgent: userAgent, Timeout: remoteCheckTimeout}
	if err := client.Head(ctx, url); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckSystemDeps evaluates the external binaries for the given config. The
// CLI and the pipeline share this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for narration, mixing, and movie encoding",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for narration and clip durations",
		},
	}
	generators := []struct {
		name    string
		command []string
		detail  string
	}{
		{"TTS command", cfg.Generation.TTSCommand, "Synthesizes beat narration"},
		{"Render command", cfg.Generation.RenderCommand, "Renders markup beats to images"},
		{"Movie command", cfg.Generation.MovieCommand, "Generates movie beats from prompts"},
	}
	for _, g := range generators {
		command := ""
		if len(g.command) > 0 {
			command = g.command[0]
		}
		requirements = append(requirements, deps.Requirement{
			Name:        g.name,
			Command:     command,
			Description: g.detail,
			Optional:    true,
		})
	}
	statuses := deps.CheckBinaries(requirements)
	if statuses[0].Available {
		statuses = append(statuses, deps.CheckFFmpegFilters(ctx, cfg.FFmpegBinary()))
	}
	return statuses
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (host unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (host unreachable)"
	}
	return err.Error()
}
