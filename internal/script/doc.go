// Package script holds the declarative script document: an ordered list of
// narration beats, each with text and one media descriptor, plus audio and
// canvas settings. Documents load from JSON or YAML.
package script
