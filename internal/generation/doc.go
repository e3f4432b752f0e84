// Package generation fans per-beat artifact production out to external
// generators. Every unit runs inside a beat session on the tracker and goes
// through the artifact cache, so reruns reuse finished files. A batch stops
// at its first failure; finished siblings are kept.
//
// ResolveDurations runs after generation and fills in every beat's duration
// and start offset so the timeline can be composed.
package generation
