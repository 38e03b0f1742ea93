// Package workflow runs a project's stages in order and keeps the run
// resumable.
//
// The Orchestrator walks the stage catalogue for one project. Each stage is
// skipped when a valid, genuine artifact from an earlier run already exists;
// otherwise the stage's provider chain is driven through the fallback policy,
// the accepted payload is validated and persisted atomically, and a progress
// checkpoint is written after every transition. A failed stage stops the run
// and leaves a checkpoint naming it, so the next run resumes there.
//
// Runs also append telemetry events to the project's events.jsonl, write a
// run-summary.json, and report to an optional Recorder (the SQLite ledger).
package workflow
