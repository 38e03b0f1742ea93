package workflow_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"splice/internal/artifact"
	"splice/internal/config"
	"splice/internal/project"
	"splice/internal/stage"
	"splice/internal/stageexec"
	"splice/internal/testsupport"
	"splice/internal/timeline"
	"splice/internal/workflow"
)

// stubRunner serves canned stage outputs. Scripted results for a
// stage/provider pair are consumed first.
type stubRunner struct {
	mu      sync.Mutex
	outputs map[string]json.RawMessage
	script  map[string][]stageexec.Result
	calls   []string
}

func newStubRunner(t *testing.T) *stubRunner {
	return &stubRunner{outputs: stageOutputs(t), script: map[string][]stageexec.Result{}}
}

func (s *stubRunner) Execute(_ context.Context, stageID string, inv stageexec.Invocation, _ time.Duration) stageexec.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stageID + "/" + inv.Provider.Name
	s.calls = append(s.calls, key)
	if queue := s.script[key]; len(queue) > 0 {
		s.script[key] = queue[1:]
		return queue[0]
	}
	if out, ok := s.outputs[stageID]; ok {
		return stageexec.Success(out)
	}
	return stageexec.Fail(stageexec.KindNonzeroExit, "%s has no output", key)
}

func (s *stubRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubRunner) callsSince(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls[n:]...)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func stageOutputs(t *testing.T) map[string]json.RawMessage {
	transcript := &artifact.Transcript{
		Words: []artifact.Word{
			{ID: "w1", Text: "hello", StartUs: 0, EndUs: 1_000_000},
			{ID: "w2", Text: "world", StartUs: 4_000_000, EndUs: 5_000_000},
		},
		Segments: []artifact.Segment{
			{ID: "s1", StartUs: 0, EndUs: 5_000_000, WordIDs: []string{"w1", "w2"}},
		},
	}
	cuts := &artifact.CutPlan{
		RemoveRanges: []artifact.RemoveRange{{StartUs: 2_000_000, EndUs: 3_000_000, Reason: "pause", Confidence: 0.8}},
		Rationale:    []artifact.Rationale{{RangeIndex: 0, Summary: "long pause"}},
	}
	templates := &artifact.TemplatePlan{Placements: []artifact.Placement{
		{ID: "p1", TemplateID: "title.card", Category: "title", StartUs: 0, EndUs: 1_000_000, Confidence: 0.9, Content: json.RawMessage(`{"title":"Hello"}`)},
	}}
	suggestions := &artifact.AssetSuggestions{Suggestions: []artifact.Suggestion{
		{ID: "a1", Provider: "stock", Kind: artifact.AssetImage, Query: "ocean", StartUs: 4_000_000, EndUs: 5_000_000, PlacementID: "p1"},
	}}
	resolved := &artifact.AssetSuggestions{Suggestions: []artifact.Suggestion{
		{ID: "a1", Provider: "stock", Kind: artifact.AssetImage, Query: "ocean", StartUs: 4_000_000, EndUs: 5_000_000, PlacementID: "p1", LocalPath: "/library/ocean.jpg"},
	}}
	tl := timeline.Build(timeline.Input{
		ProjectID:  "proj-a",
		SourceRef:  "source-video",
		DurationUs: testsupport.DefaultDurationUs,
		FPS:        30,
		CutPlan:    cuts,
		Templates:  templates,
		Assets:     resolved,
		Now:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	return map[string]json.RawMessage{
		stage.Transcribe:       mustJSON(t, transcript),
		stage.PlanCuts:         mustJSON(t, cuts),
		stage.PlanTemplates:    mustJSON(t, templates),
		stage.SuggestAssets:    mustJSON(t, suggestions),
		stage.ResolveAssets:    mustJSON(t, resolved),
		stage.AssembleTimeline: mustJSON(t, tl),
	}
}

// twoProviderConfig routes every stage through primary then backup.
func twoProviderConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	base := []testsupport.ConfigOption{
		testsupport.WithProvider(config.Provider{Name: "primary", Kind: config.ProviderCommand, Command: "primary-tool"}),
		testsupport.WithProvider(config.Provider{Name: "backup", Kind: config.ProviderCommand, Command: "backup-tool"}),
		testsupport.WithRetries(2),
	}
	for _, name := range stage.Names() {
		base = append(base, testsupport.WithStageChain(name, "primary", "backup"))
	}
	return testsupport.NewConfig(t, append(base, opts...)...)
}

type harness struct {
	cfg     *config.Config
	project *project.Project
	runner  *stubRunner
	orch    *workflow.Orchestrator
}

func newHarness(t *testing.T, opts ...workflow.Option) *harness {
	t.Helper()
	cfg := twoProviderConfig(t)
	rc, err := workflow.NewRunConfig(cfg)
	if err != nil {
		t.Fatalf("NewRunConfig: %v", err)
	}
	runner := newStubRunner(t)
	return &harness{
		cfg:     cfg,
		project: testsupport.NewProject(t, cfg, "proj-a"),
		runner:  runner,
		orch:    workflow.New(rc, runner, nil, opts...),
	}
}

func (h *harness) run(t *testing.T) (*workflow.Summary, error) {
	t.Helper()
	summary, err := h.orch.Run(context.Background(), h.project)
	if summary == nil {
		t.Fatal("Run returned a nil summary")
	}
	return summary, err
}

// recordingRecorder captures everything reported to a Recorder.
type recordingRecorder struct {
	mu       sync.Mutex
	started  []workflow.RunRecord
	events   []workflow.TelemetryEvent
	finished []*workflow.Summary
}

func (r *recordingRecorder) StartRun(_ context.Context, run workflow.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, run)
	return nil
}

func (r *recordingRecorder) RecordEvent(_ context.Context, ev workflow.TelemetryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingRecorder) FinishRun(_ context.Context, s *workflow.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, s)
	return nil
}
