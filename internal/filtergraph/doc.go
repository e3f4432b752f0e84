// Package filtergraph models ffmpeg filter graphs as a small typed tree and
// serializes them deterministically.
//
// A Graph is a list of Chains; a Chain reads labeled input pads, applies an
// ordered list of Filters, and writes labeled output pads. Filters carry their
// arguments in order, either positional or key=value. String() on each level
// produces exactly the text ffmpeg's -filter_complex expects, so callers build
// structure and never concatenate filter text by hand.
package filtergraph
