// Package artifact decides, per output file, whether an existing artifact can
// be reused or a producer must run, and persists producer output atomically.
//
// Keys share the (beat type, beat key) space with session progress slots, so
// a cache slot and the progress entry for the same work always line up.
package artifact
