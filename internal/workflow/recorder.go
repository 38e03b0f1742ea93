package workflow

import "context"

// RunRecord identifies a run for a Recorder.
type RunRecord struct {
	RunID     string
	ProjectID string
	StartedAt string
	Steps     []string
}

// Recorder receives run history. Recorder errors are logged and never fail
// a run.
type Recorder interface {
	StartRun(ctx context.Context, run RunRecord) error
	RecordEvent(ctx context.Context, ev TelemetryEvent) error
	FinishRun(ctx context.Context, summary *Summary) error
}

type nopRecorder struct{}

func (nopRecorder) StartRun(context.Context, RunRecord) error { return nil }
func (nopRecorder) RecordEvent(context.Context, TelemetryEvent) error { return nil }
func (nopRecorder) FinishRun(context.Context, *Summary) error { return nil }
