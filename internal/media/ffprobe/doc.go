// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: duration lookup used by narration mixing and beat timing
//
// Inspect executes ffprobe against a local path or remote URL and decodes
// the JSON response; helper methods on Result pick out durations and stream
// shapes.
package ffprobe
