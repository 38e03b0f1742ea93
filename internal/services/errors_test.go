package services_test

import (
	"errors"
	"strings"
	"testing"

	"splice/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "exec", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "exec", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", services.Wrap(services.ErrValidation, "plan-cuts", "validate", "bad range", nil), "validation"},
		{"config", services.Wrap(services.ErrConfiguration, "", "load", "missing", nil), "configuration"},
		{"timeout", services.Wrap(services.ErrTimeout, "transcribe", "exec", "slow", nil), "timeout"},
		{"tool", services.Wrap(services.ErrExternalTool, "transcribe", "exec", "exit 1", nil), "external_tool"},
		{"plain", errors.New("other"), "transient"},
	}
	for _, tc := range tests {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{services.Wrap(services.ErrValidation, "", "create project", "bad id", nil), services.ExitUsage},
		{services.Wrap(services.ErrNotFound, "", "load project", "missing", nil), services.ExitUsage},
		{services.Wrap(services.ErrTimeout, "transcribe", "exec", "slow", nil), services.ExitFailure},
		{errors.New("stage failed"), services.ExitFailure},
	}
	for _, tc := range tests {
		if got := services.ExitCode(tc.err); got != tc.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
