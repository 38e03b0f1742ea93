// Package logging assembles structured slog loggers and formatting helpers used
// across splice.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically
// tags log lines with project IDs, stages, run IDs, and the provider under
// attempt. TeeHandler fans a run's output into a per-project log file next
// to the process-wide log.
package logging
