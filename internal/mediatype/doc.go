// Package mediatype maps every script media kind to a capability that knows
// where the beat's visual artifact lives, how to produce it, and how to render
// preview markup for it. Dispatch is a map lookup on the kind.
package mediatype
