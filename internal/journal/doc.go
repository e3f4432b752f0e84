// Package journal persists pipeline runs and their progress events in a
// SQLite database so `mulmo status` can report on runs after they exit.
//
// The store subscribes to a session registry through Sink; every session and
// beat transition becomes one events row keyed by the run ID.
package journal
