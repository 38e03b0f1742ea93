package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"splice/internal/artifact"
	"splice/internal/config"
	"splice/internal/services"
	"splice/internal/stageexec"
)

// scriptedRunner replays canned results per provider; the last result for a
// provider repeats once the script runs out.
type scriptedRunner struct {
	script map[string][]stageexec.Result
	calls  map[string]int
}

func newScriptedRunner(script map[string][]stageexec.Result) *scriptedRunner {
	return &scriptedRunner{script: script, calls: map[string]int{}}
}

func (r *scriptedRunner) Execute(_ context.Context, _ string, inv stageexec.Invocation, _ time.Duration) stageexec.Result {
	name := inv.Provider.Name
	results := r.script[name]
	idx := r.calls[name]
	r.calls[name]++
	if len(results) == 0 {
		return stageexec.Fail(stageexec.KindIOError, "no script for %s", name)
	}
	if idx >= len(results) {
		idx = len(results) - 1
	}
	return results[idx]
}

func chain(names ...string) []stageexec.Invocation {
	out := make([]stageexec.Invocation, 0, len(names))
	for _, name := range names {
		out = append(out, stageexec.Invocation{Provider: config.Provider{Name: name, Kind: config.ProviderCommand}})
	}
	return out
}

func newTestPolicy(runner stageexec.Runner, sleeps *[]time.Duration) *Policy {
	p := New(runner, Backoff{Mode: config.BackoffExponential, Base: 100 * time.Millisecond, Max: time.Second}, nil)
	p.sleep = func(_ context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		return nil
	}
	return p
}

func timeoutResult() stageexec.Result {
	return stageexec.Fail(stageexec.KindTimeout, "exceeded 1s")
}

func TestPolicyFallsBackAfterTimeouts(t *testing.T) {
	runner := newScriptedRunner(map[string][]stageexec.Result{
		"A": {timeoutResult()},
		"B": {stageexec.Success(json.RawMessage(`{"ok":true}`))},
	})
	var sleeps []time.Duration
	policy := newTestPolicy(runner, &sleeps)

	outcome, err := policy.Run(context.Background(), Request{StageID: "plan-cuts", Chain: chain("A", "B"), MaxAttempts: 3})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if outcome.Provider != "B" {
		t.Fatalf("expected success attributed to B, got %q", outcome.Provider)
	}
	if string(outcome.Output) != `{"ok":true}` {
		t.Fatalf("unexpected output %s", outcome.Output)
	}
	if runner.calls["A"] != 3 || runner.calls["B"] != 1 {
		t.Fatalf("unexpected call counts: %v", runner.calls)
	}
	if len(outcome.History) != 1 || outcome.History[0].Provider != "A" {
		t.Fatalf("expected history for A, got %+v", outcome.History)
	}
	if got := len(outcome.History[0].Attempts); got != 3 {
		t.Fatalf("expected 3 recorded attempts for A, got %d", got)
	}
	for _, a := range outcome.History[0].Attempts {
		if a.Kind != string(stageexec.KindTimeout) {
			t.Fatalf("unexpected attempt kind %q", a.Kind)
		}
	}
	if len(sleeps) != 2 || sleeps[0] != 100*time.Millisecond || sleeps[1] != 200*time.Millisecond {
		t.Fatalf("unexpected backoff sequence %v", sleeps)
	}
}

func TestPolicyRetriesTransientThenSucceeds(t *testing.T) {
	runner := newScriptedRunner(map[string][]stageexec.Result{
		"A": {
			stageexec.Fail(stageexec.KindNonzeroExit, "exit 1"),
			stageexec.Success(json.RawMessage(`{}`)),
		},
	})
	outcome, err := newTestPolicy(runner, nil).Run(context.Background(), Request{StageID: "transcribe", Chain: chain("A", "B"), MaxAttempts: 2})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if outcome.Provider != "A" || runner.calls["B"] != 0 {
		t.Fatalf("expected A to succeed without touching B: provider=%s calls=%v", outcome.Provider, runner.calls)
	}
	if len(outcome.Attempts) != 2 || !outcome.Attempts[1].OK {
		t.Fatalf("unexpected attempts %+v", outcome.Attempts)
	}
}

func TestPolicyRotatesImmediatelyOnPermanentFailure(t *testing.T) {
	garbage := stageexec.Fail(stageexec.KindUnparseable, "not json")
	garbage.Failure.Connected = true
	runner := newScriptedRunner(map[string][]stageexec.Result{
		"A": {garbage},
		"B": {stageexec.Success(json.RawMessage(`{}`))},
	})
	outcome, err := newTestPolicy(runner, nil).Run(context.Background(), Request{StageID: "plan-cuts", Chain: chain("A", "B"), MaxAttempts: 5})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if runner.calls["A"] != 1 {
		t.Fatalf("permanent failure should not be retried, A called %d times", runner.calls["A"])
	}
	if outcome.Provider != "B" {
		t.Fatalf("expected B, got %s", outcome.Provider)
	}
}

func TestPolicyRotatesOnRejectionWithoutRetry(t *testing.T) {
	runner := newScriptedRunner(map[string][]stageexec.Result{
		"A": {stageexec.Success(json.RawMessage(`{"bad":true}`))},
		"B": {stageexec.Success(json.RawMessage(`{"good":true}`))},
	})
	accept := func(provider string, raw json.RawMessage) error {
		if provider == "A" {
			return &artifact.Violations{Kind: artifact.KindCutPlan, Items: []artifact.Violation{{Field: "removeRanges[0].endUs", Reason: "end 2000001 exceeds source duration 2000000"}}}
		}
		return nil
	}
	outcome, err := newTestPolicy(runner, nil).Run(context.Background(), Request{StageID: "plan-cuts", Chain: chain("A", "B"), MaxAttempts: 3, Accept: accept})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if runner.calls["A"] != 1 || outcome.Provider != "B" {
		t.Fatalf("expected single attempt on A then B: calls=%v provider=%s", runner.calls, outcome.Provider)
	}
	if len(outcome.History) != 1 || len(outcome.History[0].Attempts[0].Violations) != 1 {
		t.Fatalf("expected rejection violations in history, got %+v", outcome.History)
	}
}

func TestPolicyExhaustionAggregatesHistory(t *testing.T) {
	garbage := stageexec.Fail(stageexec.KindUnparseable, "not json")
	garbage.Failure.Connected = true
	runner := newScriptedRunner(map[string][]stageexec.Result{
		"A": {stageexec.Fail(stageexec.KindIOError, "connection refused")},
		"B": {garbage},
	})
	_, err := newTestPolicy(runner, nil).Run(context.Background(), Request{StageID: "plan-cuts", Chain: chain("A", "B"), MaxAttempts: 2})
	if !errors.Is(err, ErrChainExhausted) {
		t.Fatalf("expected ErrChainExhausted, got %v", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %T", err)
	}
	if len(exhausted.History) != 2 {
		t.Fatalf("expected two providers in history, got %+v", exhausted.History)
	}
	if exhausted.History[0].Reason != "io-error after 2 attempt(s)" {
		t.Fatalf("unexpected reason for A: %q", exhausted.History[0].Reason)
	}
	if exhausted.History[1].Reason != "permanent unparseable-output" {
		t.Fatalf("unexpected reason for B: %q", exhausted.History[1].Reason)
	}
}

func TestPolicyFinalRejectionIsValidationError(t *testing.T) {
	runner := newScriptedRunner(map[string][]stageexec.Result{
		"A": {stageexec.Success(json.RawMessage(`{}`))},
	})
	accept := func(string, json.RawMessage) error {
		return &artifact.Violations{Kind: artifact.KindTemplatePlan, Items: []artifact.Violation{{Reason: "overlap"}}}
	}
	_, err := newTestPolicy(runner, nil).Run(context.Background(), Request{StageID: "plan-templates", Chain: chain("A"), MaxAttempts: 3, Accept: accept})
	if !errors.Is(err, ErrChainExhausted) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected exhausted validation error, got %v", err)
	}
	if runner.calls["A"] != 1 {
		t.Fatalf("rejected output must not be retried, got %d calls", runner.calls["A"])
	}
}

func TestPolicyEmptyChain(t *testing.T) {
	_, err := newTestPolicy(newScriptedRunner(nil), nil).Run(context.Background(), Request{StageID: "plan-cuts"})
	if !errors.Is(err, ErrChainExhausted) {
		t.Fatalf("expected ErrChainExhausted, got %v", err)
	}
}

func TestPolicyStopsOnCancelledContext(t *testing.T) {
	runner := newScriptedRunner(map[string][]stageexec.Result{"A": {timeoutResult()}})
	policy := New(runner, Backoff{Base: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	policy.Observe = func(Attempt) { cancel() }

	_, err := policy.Run(ctx, Request{StageID: "transcribe", Chain: chain("A"), MaxAttempts: 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		backoff Backoff
		attempt int
		want    time.Duration
	}{
		{"fixed", Backoff{Mode: config.BackoffFixed, Base: 250 * time.Millisecond, Max: time.Second}, 4, 250 * time.Millisecond},
		{"exp first", Backoff{Mode: config.BackoffExponential, Base: 500 * time.Millisecond, Max: 8 * time.Second}, 1, 500 * time.Millisecond},
		{"exp third", Backoff{Mode: config.BackoffExponential, Base: 500 * time.Millisecond, Max: 8 * time.Second}, 3, 2 * time.Second},
		{"exp capped", Backoff{Mode: config.BackoffExponential, Base: 500 * time.Millisecond, Max: 8 * time.Second}, 12, 8 * time.Second},
		{"zero base", Backoff{Mode: config.BackoffExponential}, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.backoff.Delay(tt.attempt); got != tt.want {
				t.Fatalf("Delay(%d) = %s, want %s", tt.attempt, got, tt.want)
			}
		})
	}
}
