package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/artifact"
	"splice/internal/ledger"
	"splice/internal/workflow"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, "demo", true)

	out, err := env.run(t, "status", "--project", "demo")
	if err != nil {
		t.Fatalf("status before run: %v", err)
	}
	requireContains(t, out, "No runs yet")
	requireContains(t, out, "English (en)")

	if _, err := env.run(t, "run", "--project", "demo"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err = env.run(t, "status", "--project", "demo")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] done (100%)")
	requireContains(t, out, "Assemble Timeline")
	requireContains(t, out, "transcript.import")
	if strings.Contains(out, "Recent events") {
		t.Fatal("events should only be shown with --events")
	}

	out, err = env.run(t, "status", "--project", "demo", "--events", "3")
	if err != nil {
		t.Fatalf("status --events: %v", err)
	}
	requireContains(t, out, "Recent events")
	requireContains(t, out, workflow.EventRunFinished)

	out, err = env.run(t, "status", "--project", "demo", "--json", "--events", "2")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	decodeJSON(t, out, &report)
	if report.Progress == nil || report.Progress.Status != artifact.ProgressDone {
		t.Fatalf("unexpected progress: %+v", report.Progress)
	}
	if report.Summary == nil || !report.Summary.OK {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if len(report.Events) != 2 || report.Events[1].Type != workflow.EventRunFinished {
		t.Fatalf("unexpected events: %+v", report.Events)
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, "demo", true)
	env.createProject(t, "other", false)

	out, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	if _, err := env.run(t, "run", "--project", "demo"); err != nil {
		t.Fatalf("run demo: %v", err)
	}
	if _, err := env.run(t, "run", "--project", "demo"); err != nil {
		t.Fatalf("rerun demo: %v", err)
	}
	if _, err := env.run(t, "run", "--project", "other"); err == nil {
		t.Fatal("expected other to fail")
	}

	out, err = env.run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var runs []ledger.Run
	decodeJSON(t, out, &runs)
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ProjectID != "other" || runs[0].Status != ledger.RunFailed || runs[0].FailedStep != "transcribe" {
		t.Fatalf("unexpected newest run: %+v", runs[0])
	}

	out, err = env.run(t, "history", "--project", "demo")
	if err != nil {
		t.Fatalf("history --project: %v", err)
	}
	requireContains(t, out, "6/6")
	if strings.Contains(out, "other") {
		t.Fatal("project filter leaked other runs")
	}

	out, err = env.run(t, "history", "--run", runs[1].RunID)
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	requireContains(t, out, workflow.EventRunStarted)
	requireContains(t, out, workflow.EventStageTransition)

	if _, err := env.run(t, "history", "--prune", "1"); err == nil {
		t.Fatal("expected --prune without --project to fail")
	}
	out, err = env.run(t, "history", "--project", "demo", "--prune", "1")
	if err != nil {
		t.Fatalf("history --prune: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s) of demo")
}

func TestHistoryCommandLedgerDisabled(t *testing.T) {
	env := setupCLITestEnv(t, withLedgerDisabled())
	env.createProject(t, "demo", true)

	if _, err := env.run(t, "run", "--project", "demo"); err != nil {
		t.Fatalf("run without ledger: %v", err)
	}
	if _, err := env.run(t, "history"); !errors.Is(err, errLedgerDisabled) {
		t.Fatalf("expected errLedgerDisabled, got %v", err)
	}
	if _, err := os.Stat(env.cfg.Ledger.Path); !os.IsNotExist(err) {
		t.Fatalf("ledger file should not be created when disabled: %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, "demo", true)

	out, err := env.run(t, "validate", "--project", "demo")
	if err != nil {
		t.Fatalf("validate empty project: %v", err)
	}
	requireContains(t, out, "not generated")

	if _, err := env.run(t, "run", "--project", "demo"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, err = env.run(t, "validate", "--project", "demo")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK] valid")
	requireContains(t, out, "valid placeholder")

	cutPlan := filepath.Join(env.cfg.Paths.DataDir, "demo", artifact.KindCutPlan.FileName())
	if err := os.WriteFile(cutPlan, []byte(`{"removeRanges":[{"startUs":5,"endUs":1}]}`), 0o644); err != nil {
		t.Fatalf("corrupt cut plan: %v", err)
	}
	out, err = env.run(t, "validate", "--project", "demo", "--kind", "cut-plan")
	if err == nil || !strings.Contains(err.Error(), "1 artifact(s) failed validation") {
		t.Fatalf("expected validation failure, got %v", err)
	}
	requireContains(t, out, "violation(s)")
	if strings.Contains(out, "timeline") {
		t.Fatal("--kind should limit the report")
	}

	out, err = env.run(t, "validate", "--project", "demo", "--json")
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var reports []workflow.ArtifactReport
	decodeJSON(t, out, &reports)
	if len(reports) != len(artifact.Kinds) {
		t.Fatalf("expected %d reports, got %d", len(artifact.Kinds), len(reports))
	}

	if _, err := env.run(t, "validate", "--project", "demo", "--kind", "bogus"); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestPreflightCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "preflight")
	if err != nil {
		t.Fatalf("preflight: %v\n%s", err, out)
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "Data directory")
	requireContains(t, out, "[OK]")

	broken := setupCLITestEnv(t, withConfigTOML(`[stages.transcribe]
providers = ["whisper"]

[[providers]]
name = "whisper"
kind = "command"
command = "splice-no-such-transcriber"`))
	out, err = broken.run(t, "preflight", "--skip-llm")
	if err == nil {
		t.Fatal("expected preflight failure for a missing binary")
	}
	requireContains(t, out, "Command whisper")
	requireContains(t, out, "[ERROR]")
}
