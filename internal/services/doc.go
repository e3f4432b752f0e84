// Package services defines shared utilities consumed by the generation,
// composition, and pipeline packages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, beat keys, and target
//     languages for logging.
//   - Structured error markers plus the Wrap helper that tag failures with the
//     stage that produced them (precondition vs generation vs network).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
