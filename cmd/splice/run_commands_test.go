package main

import (
	"errors"
	"strings"
	"testing"

	"splice/internal/artifact"
	"splice/internal/project"
	"splice/internal/stage"
	"splice/internal/workflow"
)

func TestRunCommandCompletesAndResumes(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, "demo", true)

	out, err := env.run(t, "run", "--project", "demo")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	var summary workflow.Summary
	decodeJSON(t, out, &summary)
	if !summary.OK || summary.ProjectID != "demo" || len(summary.CompletedSteps) != len(stage.Names()) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Steps[stage.Transcribe].Provider != stage.BuiltinTranscriptImport {
		t.Fatalf("unexpected transcribe step: %+v", summary.Steps[stage.Transcribe])
	}

	out, err = env.run(t, "run", "--project", "demo")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	var second workflow.Summary
	decodeJSON(t, out, &second)
	if second.RunID == summary.RunID {
		t.Fatal("expected a fresh run id")
	}
	for _, name := range []string{stage.Transcribe, stage.PlanCuts, stage.PlanTemplates, stage.AssembleTimeline} {
		if got := second.Steps[name].Status; got != artifact.StepSkipped {
			t.Fatalf("expected %s to be skipped on resume, got %q", name, got)
		}
	}
}

func TestRunCommandFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, "bare", false)

	out, err := env.run(t, "run", "--project", "bare")
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("expected errRunFailed, got %v", err)
	}
	requireContains(t, err.Error(), "stage transcribe")
	var summary workflow.Summary
	decodeJSON(t, out, &summary)
	if summary.OK || summary.FailedStep != stage.Transcribe || summary.Error == "" {
		t.Fatalf("unexpected failure summary: %+v", summary)
	}
}

func TestRunCommandUnknownProject(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "run", "--project", "ghost")
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("expected errRunFailed, got %v", err)
	}
	var summary workflow.Summary
	decodeJSON(t, out, &summary)
	if summary.OK || summary.ErrorKind != "not_found" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunCommandRespectsProjectLock(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, "locked", true)

	p, err := project.Load(env.cfg.Paths.DataDir, "locked")
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	lock, err := p.Lock()
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer func() { _ = lock.Unlock() }()

	_, err = env.run(t, "run", "--project", "locked")
	if err == nil || !strings.Contains(err.Error(), project.ErrRunInProgress.Error()) {
		t.Fatalf("expected run-in-progress error, got %v", err)
	}
}

func TestRunBatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, "one", true)
	env.createProject(t, "two", false)
	env.createProject(t, "three", true)

	out, err := env.run(t, "run-batch", "one", "two", "three", "--concurrency", "2")
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("expected errRunFailed, got %v", err)
	}
	requireContains(t, err.Error(), "1 of 3 projects failed")

	var summaries []workflow.Summary
	decodeJSON(t, out, &summaries)
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	for i, want := range []struct {
		id string
		ok bool
	}{{"one", true}, {"two", false}, {"three", true}} {
		if summaries[i].ProjectID != want.id || summaries[i].OK != want.ok {
			t.Fatalf("summary %d = %+v, want %s ok=%v", i, summaries[i], want.id, want.ok)
		}
	}

	out, err = env.run(t, "run-batch", "one", "three")
	if err != nil {
		t.Fatalf("run-batch of healthy projects: %v\n%s", err, out)
	}
}

func TestRunBatchRequiresProjects(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "run-batch"); err == nil {
		t.Fatal("expected argument error")
	}
}
