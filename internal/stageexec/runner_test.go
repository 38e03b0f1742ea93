package stageexec

import (
	"context"
	"testing"
	"time"

	"splice/internal/config"
	"splice/internal/logging"
)

type recordingRunner struct {
	calls int
}

func (r *recordingRunner) Execute(context.Context, string, Invocation, time.Duration) Result {
	r.calls++
	return Success([]byte(`{}`))
}

func TestDispatcherRoutesByKind(t *testing.T) {
	command, model, builtin := &recordingRunner{}, &recordingRunner{}, &recordingRunner{}
	d := &Dispatcher{Command: command, LLM: model, Builtin: builtin, Logger: logging.NewNop()}

	for _, kind := range []string{config.ProviderCommand, config.ProviderLLM, config.ProviderLLM, config.ProviderBuiltin} {
		inv := Invocation{Provider: config.Provider{Name: "p", Kind: kind}}
		if result := d.Execute(context.Background(), "plan-cuts", inv, time.Second); !result.OK() {
			t.Fatalf("unexpected failure for %s: %v", kind, result.Failure)
		}
	}
	if command.calls != 1 || model.calls != 2 || builtin.calls != 1 {
		t.Fatalf("unexpected routing: command=%d llm=%d builtin=%d", command.calls, model.calls, builtin.calls)
	}

	result := d.Execute(context.Background(), "plan-cuts", Invocation{Provider: config.Provider{Name: "p", Kind: "grpc"}}, time.Second)
	if result.OK() || result.Failure.Kind != KindIOError {
		t.Fatalf("expected io-error for unknown kind, got %+v", result)
	}
}

func TestFailureTransience(t *testing.T) {
	tests := []struct {
		failure Failure
		want    bool
	}{
		{Failure{Kind: KindTimeout}, true},
		{Failure{Kind: KindNonzeroExit}, true},
		{Failure{Kind: KindIOError}, true},
		{Failure{Kind: KindUnparseable}, true},
		{Failure{Kind: KindUnparseable, Connected: true}, false},
	}
	for _, tt := range tests {
		if got := tt.failure.Transient(); got != tt.want {
			t.Fatalf("%+v.Transient() = %v, want %v", tt.failure, got, tt.want)
		}
	}
}
