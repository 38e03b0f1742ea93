// Package progress persists pipeline checkpoints.
//
// Each project keeps one progress.json under its storage root. Checkpoints
// replace the file atomically, so pollers such as `splice status` never see
// a partially written snapshot.
package progress
