package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"splice/internal/ledger"
	"splice/internal/testsupport"
	"splice/internal/workflow"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("Path = %q", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = reopened.Close()
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil || version != 1 {
		t.Fatalf("expected user_version 1 after open, got %d (%v)", version, err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := ledger.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run := workflow.RunRecord{
		RunID:     "run-1",
		ProjectID: "demo",
		StartedAt: "2026-01-02T03:04:05Z",
		Steps:     []string{"transcribe", "plan-cuts"},
	}
	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil || got == nil {
		t.Fatalf("GetRun: %v %v", got, err)
	}
	if got.Status != ledger.RunRunning || got.StepsTotal != 2 || got.Duration() != 0 {
		t.Fatalf("unexpected running row: %+v", got)
	}

	events := []workflow.TelemetryEvent{
		{At: "2026-01-02T03:04:05Z", Type: workflow.EventRunStarted, RunID: "run-1", ProjectID: "demo"},
		{At: "2026-01-02T03:04:06Z", Type: workflow.EventProviderAttempt, RunID: "run-1", ProjectID: "demo",
			Stage: "transcribe", Provider: "primary", Attempt: 1, Kind: "timeout", Detail: "deadline", ElapsedMs: 12},
		{At: "2026-01-02T03:04:07Z", Type: workflow.EventStageTransition, RunID: "run-1", ProjectID: "demo",
			Stage: "transcribe", Status: "done"},
	}
	for _, ev := range events {
		if err := store.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	summary := &workflow.Summary{
		OK:             false,
		ProjectID:      "demo",
		RunID:          "run-1",
		StartedAt:      "2026-01-02T03:04:05Z",
		CompletedAt:    "2026-01-02T03:04:15Z",
		Steps:          map[string]workflow.StepSummary{"transcribe": {Status: "done", Provider: "primary", Attempts: 2}},
		Error:          "plan-cuts: chain exhausted",
		ErrorKind:      "validation",
		FailedStep:     "plan-cuts",
		CompletedSteps: []string{"transcribe"},
	}
	if err := store.FinishRun(ctx, summary); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil || got == nil {
		t.Fatalf("GetRun after finish: %v %v", got, err)
	}
	if got.Status != ledger.RunFailed || got.FailedStep != "plan-cuts" || got.StepsCompleted != 1 {
		t.Fatalf("unexpected finished row: %+v", got)
	}
	if got.Duration().Seconds() != 10 {
		t.Fatalf("Duration = %v", got.Duration())
	}
	if got.Summary == nil || got.Summary.ErrorKind != "validation" || got.Summary.Steps["transcribe"].Attempts != 2 {
		t.Fatalf("summary not round-tripped: %+v", got.Summary)
	}

	stored, err := store.Events(ctx, "run-1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(stored) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(stored))
	}
	for i, ev := range stored {
		if ev != events[i] {
			t.Fatalf("event %d = %+v, want %+v", i, ev, events[i])
		}
	}
}

func TestFinishRunWithoutStartInserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	err := store.FinishRun(ctx, &workflow.Summary{OK: true, ProjectID: "demo", RunID: "orphan", CompletedAt: "2026-01-02T03:04:05Z"})
	if err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := store.GetRun(ctx, "orphan")
	if err != nil || got == nil || got.Status != ledger.RunDone {
		t.Fatalf("unexpected row: %+v %v", got, err)
	}

	if err := store.FinishRun(ctx, &workflow.Summary{ProjectID: "demo"}); err == nil {
		t.Fatal("expected error for summary without run id")
	}
}

func TestRecordEventRequiresKnownRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	err := store.RecordEvent(context.Background(), workflow.TelemetryEvent{RunID: "missing", Type: workflow.EventRunStarted})
	if err == nil {
		t.Fatal("expected foreign key error for unknown run")
	}
}

func TestListRunsAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	starts := []struct{ id, project, at string }{
		{"a1", "alpha", "2026-01-01T00:00:00Z"},
		{"b1", "beta", "2026-01-02T00:00:00Z"},
		{"a2", "alpha", "2026-01-03T00:00:00Z"},
		{"a3", "alpha", "2026-01-04T00:00:00Z"},
	}
	for _, s := range starts {
		if err := store.StartRun(ctx, workflow.RunRecord{RunID: s.id, ProjectID: s.project, StartedAt: s.at}); err != nil {
			t.Fatalf("StartRun %s: %v", s.id, err)
		}
	}
	if err := store.RecordEvent(ctx, workflow.TelemetryEvent{RunID: "a1", Type: workflow.EventRunStarted, At: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	all, err := store.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if ids := runIDs(all); ids != "a3,a2,b1,a1" {
		t.Fatalf("ListRuns order = %s", ids)
	}

	alpha, err := store.ListRuns(ctx, "alpha", 2)
	if err != nil {
		t.Fatalf("ListRuns alpha: %v", err)
	}
	if ids := runIDs(alpha); ids != "a3,a2" {
		t.Fatalf("ListRuns alpha = %s", ids)
	}

	removed, err := store.Prune(ctx, "alpha", 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Prune removed %d, want 2", removed)
	}
	remaining, err := store.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListRuns after prune: %v", err)
	}
	if ids := runIDs(remaining); ids != "a3,b1" {
		t.Fatalf("after prune = %s", ids)
	}
	events, err := store.Events(ctx, "a1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected pruned events to cascade, got %d", len(events))
	}

	missing, err := store.GetRun(ctx, "a1")
	if err != nil || missing != nil {
		t.Fatalf("GetRun pruned = %+v %v", missing, err)
	}
}

func runIDs(runs []ledger.Run) string {
	out := ""
	for i, r := range runs {
		if i > 0 {
			out += ","
		}
		out += r.RunID
	}
	return out
}
