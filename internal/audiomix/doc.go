// Package audiomix builds the audio filter graphs: the narration track that
// concatenates per-beat clips on the beat timeline, and the background music
// mix that lays narration over looping music with intro/outro padding and a
// closing fade.
package audiomix
