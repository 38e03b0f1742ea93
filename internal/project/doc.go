// Package project manages per-project storage.
//
// A project lives in <data_dir>/<id>/ and owns project.json, one JSON file
// per artifact kind, progress.json, run-summary.json, a telemetry/ directory,
// and an assets/ directory for resolved stock media. Runs for one project are
// serialized with an advisory lock on <root>/.run.lock.
package project
