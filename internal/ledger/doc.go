// Package ledger keeps a SQLite history of pipeline runs.
//
// Each run is a row in runs, updated when the run finishes with its outcome
// and the full run summary. Stage transitions and provider attempts land in
// stage_events. Store implements workflow.Recorder so the orchestrator can
// report to it directly; `splice history` reads it back.
package ledger
