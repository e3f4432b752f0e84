package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mulmocast/internal/fileutil"
	"mulmocast/internal/logging"
	"mulmocast/internal/services"
	"mulmocast/internal/session"
)

const backupTimeLayout = "20060102150405"

// Key identifies one cache slot.
type Key struct {
	Session session.BeatType
	Beat    string
}

func (k Key) String() string {
	return string(k.Session) + "/" + k.Beat
}

// Output is what a producer hands back. Exactly one of Buffer, Text, or Saved
// should be set; Saved means the producer already wrote the target path.
type Output struct {
	Buffer []byte
	Text   *string
	Saved  bool
}

// BufferOutput wraps binary content.
func BufferOutput(data []byte) Output { return Output{Buffer: data} }

// TextOutput wraps text content.
func TextOutput(text string) Output { return Output{Text: &text} }

// SavedOutput signals the producer wrote the file itself.
func SavedOutput() Output { return Output{Saved: true} }

// Empty reports whether the output carries nothing usable.
func (o Output) Empty() bool {
	return o.Buffer == nil && o.Text == nil && !o.Saved
}

// Producer generates an artifact on a cache miss.
type Producer func(ctx context.Context) (Output, error)

// Request describes one artifact lookup.
type Request struct {
	Key  Key
	Path string
	// Force regenerates when any element is true.
	Force []bool
	// Backup also keeps a timestamped copy next to the primary file.
	Backup bool
}

// Cache persists producer output. It does not deduplicate concurrent calls
// for one key; callers schedule each key once.
type Cache struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewCache returns a cache logging through logger.
func NewCache(logger *slog.Logger) *Cache {
	return &Cache{
		logger: logging.NewComponentLogger(logger, "artifact"),
		now:    time.Now,
	}
}

// RequestArtifact returns req.Path, reusing the existing file when present and
// not forced, otherwise running producer and writing its output.
func (c *Cache) RequestArtifact(ctx context.Context, req Request, producer Producer) (string, error) {
	stage := string(req.Key.Session)
	if strings.TrimSpace(req.Path) == "" {
		return "", services.Wrap(services.ErrPrecondition, stage, "request artifact", fmt.Sprintf("no output path for %s", req.Key), nil)
	}
	logger := logging.WithContext(ctx, c.logger).With(logging.String("artifact_key", req.Key.String()))

	if !anyTrue(req.Force) && fileutil.Exists(req.Path) {
		logger.Debug("artifact cache hit", logging.String("path", req.Path), logging.String(logging.FieldEventType, "artifact_cache_hit"))
		return req.Path, nil
	}
	logger.Debug("artifact cache miss", logging.String("path", req.Path), logging.Bool("forced", anyTrue(req.Force)))

	if producer == nil {
		return "", services.Wrap(services.ErrGeneration, stage, "request artifact", fmt.Sprintf("no producer for %s", req.Key), nil)
	}
	out, err := producer(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrGeneration, stage, "produce", req.Key.String(), err)
	}

	switch {
	case out.Buffer != nil:
		if err := fileutil.WriteFileAtomic(req.Path, out.Buffer, 0o644); err != nil {
			return "", services.Wrap(services.ErrGeneration, stage, "write artifact", req.Path, err)
		}
	case out.Text != nil:
		if err := fileutil.WriteFileAtomic(req.Path, []byte(*out.Text), 0o644); err != nil {
			return "", services.Wrap(services.ErrGeneration, stage, "write artifact", req.Path, err)
		}
	case out.Saved:
		if !fileutil.Exists(req.Path) {
			return "", services.Wrap(services.ErrGeneration, stage, "produce",
				fmt.Sprintf("producer reported %s saved but file is missing", req.Path), nil)
		}
	default:
		return "", services.Wrap(services.ErrGeneration, stage, "produce",
			fmt.Sprintf("producer returned no content for %s", req.Key), nil)
	}

	if req.Backup {
		c.writeBackup(logger, req.Path)
	}
	logger.Debug("artifact written", logging.String("path", req.Path), logging.String(logging.FieldEventType, "artifact_written"))
	return req.Path, nil
}

// writeBackup copies the primary artifact to its timestamped name. Failure is
// logged and never affects the primary.
func (c *Cache) writeBackup(logger *slog.Logger, path string) {
	target := BackupPath(path, c.now())
	if err := fileutil.CopyFile(path, target); err != nil {
		logging.WarnWithContext(logger, "artifact backup failed", "artifact_backup_failed",
			logging.String("path", path),
			logging.String("backup_path", target),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions in the output directory"),
			logging.String(logging.FieldImpact, "no timestamped copy kept for this artifact"),
			logging.Alert("backup_failed"),
		)
		return
	}
	logger.Debug("artifact backup written", logging.String("backup_path", target))
}

// BackupPath returns name-YYYYMMDDHHMMSS.ext beside path.
func BackupPath(path string, at time.Time) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, name+"-"+at.Format(backupTimeLayout)+ext)
}

func anyTrue(flags []bool) bool {
	for _, flag := range flags {
		if flag {
			return true
		}
	}
	return false
}
