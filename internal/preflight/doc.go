// Package preflight provides readiness checks for the directories, binaries,
// and background music a movie run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before generating anything. If any check
//     fails, the run stops before external generators are invoked.
//   - The CLI "mulmo preflight" command prints every result.
//
// Optional features (background music, generator commands) are only checked
// when configured.
package preflight
