// Package main hosts the mulmo CLI.
//
// The Cobra command tree turns a script document into movies (`movie`),
// prints the composed filter graph without encoding (`graph`), reports run
// history from the progress journal (`status`), checks the environment
// (`preflight`), and scaffolds configuration (`config`). Configuration is
// resolved once per invocation and shared by every subcommand; the heavy
// lifting lives in internal/pipeline.
package main
