// Package encoder runs ffmpeg with argument lists built by the composition
// packages and reports sampled progress through the logger.
package encoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"mulmocast/internal/logging"
	"mulmocast/internal/services"
)

const stderrTailLines = 20

// globalArgs precede every invocation. Progress goes to stdout as key=value
// lines.
var globalArgs = []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error", "-nostats", "-progress", "pipe:1"}

// Job is one encoder invocation.
type Job struct {
	Args []string
	// Label names the job in logs ("narration", "bgm", "movie").
	Label string
	// Duration in seconds turns progress into percentages when positive.
	Duration float64
	// OnProgress, when set, receives every parsed progress update.
	OnProgress func(Progress)
}

// Progress is one parsed `-progress` block.
type Progress struct {
	OutTimeSeconds float64
	Percent        float64
	Done           bool
}

// Runner executes the ffmpeg binary.
type Runner struct {
	Binary string
	logger *slog.Logger
}

// NewRunner returns a runner for binary; empty means "ffmpeg".
func NewRunner(binary string, logger *slog.Logger) *Runner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Runner{Binary: binary, logger: logging.NewComponentLogger(logger, "encoder")}
}

// Run executes ffmpeg with args.
func (r *Runner) Run(ctx context.Context, args []string) error {
	return r.RunJob(ctx, Job{Args: args})
}

// RunJob executes one job, logging progress at most once per 10% bucket.
func (r *Runner) RunJob(ctx context.Context, job Job) error {
	label := job.Label
	if label == "" {
		label = "encode"
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String("job", label))

	full := make([]string, 0, len(globalArgs)+len(job.Args))
	full = append(full, globalArgs...)
	full = append(full, job.Args...)
	cmd := exec.CommandContext(ctx, r.Binary, full...) //nolint:gosec

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrGeneration, "encode", label, "stdout pipe", err)
	}
	stderr := &tailBuffer{max: stderrTailLines}
	cmd.Stderr = stderr

	logger.Debug("encoder started", logging.String("binary", r.Binary), logging.Int("args", len(full)))
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrGeneration, "encode", label, "start "+r.Binary, err)
	}

	sampler := logging.NewProgressSampler(10)
	parseProgress(stdout, job.Duration, func(p Progress) {
		if job.OnProgress != nil {
			job.OnProgress(p)
		}
		percent := p.Percent
		if job.Duration <= 0 {
			percent = -1
		}
		if sampler.ShouldLog(percent, label) || p.Done {
			logger.Info("encoder progress",
				logging.Float64("percent", round1(p.Percent)),
				logging.Float64("out_time", round1(p.OutTimeSeconds)),
				logging.String(logging.FieldEventType, "encode_progress"),
			)
		}
	})

	if err := cmd.Wait(); err != nil {
		detail := stderr.String()
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrGeneration, "encode", label, detail, err)
	}
	logger.Debug("encoder finished")
	return nil
}

// parseProgress reads `-progress` output until EOF, emitting one Progress per
// block terminated by a "progress=" line.
func parseProgress(r io.Reader, duration float64, emit func(Progress)) {
	scanner := bufio.NewScanner(r)
	var current Progress
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// ffmpeg reports both in microseconds.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				current.OutTimeSeconds = float64(us) / 1e6
			}
		case "progress":
			current.Done = value == "end"
			if duration > 0 {
				current.Percent = current.OutTimeSeconds / duration * 100
				if current.Percent > 100 {
					current.Percent = 100
				}
			}
			if current.Done {
				current.Percent = 100
			}
			emit(current)
		}
	}
	// Drain so the process never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial string
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := b.partial + string(p)
	parts := strings.Split(text, "\n")
	b.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		b.lines = append(b.lines, line)
		if len(b.lines) > b.max {
			b.lines = b.lines[len(b.lines)-b.max:]
		}
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.lines
	if tail := strings.TrimSpace(b.partial); tail != "" {
		lines = append(append([]string{}, lines...), tail)
	}
	return strings.Join(lines, "; ")
}

func (p Progress) String() string {
	return fmt.Sprintf("%.1f%% (%.1fs)", p.Percent, p.OutTimeSeconds)
}
