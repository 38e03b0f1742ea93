package services_test

import (
	"context"
	"testing"

	"splice/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProjectID(ctx, "proj-42")
	ctx = services.WithStage(ctx, "plan-cuts")
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithProvider(ctx, "ollama")

	if id, ok := services.ProjectIDFromContext(ctx); !ok || id != "proj-42" {
		t.Fatalf("unexpected project id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "plan-cuts" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
	if provider, ok := services.ProviderFromContext(ctx); !ok || provider != "ollama" {
		t.Fatalf("unexpected provider: %v %v", provider, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithProjectID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ProjectIDFromContext(ctx); ok {
		t.Fatal("expected no project value")
	}
}
