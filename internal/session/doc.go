// Package session tracks which long-running operations, and which beats
// inside them, are in flight, and notifies subscribed observers on every
// transition.
//
// A Registry owns the observer set and is passed explicitly to each Tracker,
// so independent pipelines in one process never share progress state. Track
// and TrackSession pair every begin with exactly one end, including when the
// wrapped function fails or panics.
package session
