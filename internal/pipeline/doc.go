// Package pipeline runs one script end to end: it claims the output
// directory, generates every beat asset, composes each language's narration
// and movie, and persists the studio document.
//
// A run is strictly staged. Images, movies, and narration are generated with
// bounded fan-out; composition starts only after all of them have finished.
// Tracker transitions are mirrored into the SQLite journal so `mulmo status`
// can report progress of the current run and the history of earlier ones.
package pipeline
