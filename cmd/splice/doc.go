// Package main hosts the splice CLI entrypoint and command graph.
//
// The Cobra-based command tree creates projects, runs the stage pipeline
// for one project or a batch, and inspects progress, telemetry, artifacts,
// and run history. It centralizes configuration resolution, logger setup,
// and pipeline wiring so subcommands only deal with presentation.
//
// Keep this package lean: add new functionality in the internal packages
// first, then surface it through dedicated commands or flags here.
package main
