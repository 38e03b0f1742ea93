// Package services defines shared utilities consumed by the pipeline stages
// and external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, stage names, run IDs, and the
//     provider under attempt for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the orchestrator
//     classify failures (validation vs external tool vs timeout) in run
//     summaries.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
