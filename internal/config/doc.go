// Package config loads, normalizes, and validates mulmo configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FFMPEG_PATH and MULMO_BGM. The Config type centralizes every knob the
// pipeline and CLI need: canvas and frame rate, background music mixing,
// generation fan-out limits, and encoder binaries.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language tags, and clear validation errors.
package config
