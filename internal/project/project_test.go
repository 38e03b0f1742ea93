package project

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"splice/internal/artifact"
	"splice/internal/services"
)

func TestCreateAndLoad(t *testing.T) {
	dataDir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 8000, time.UTC)

	created, err := Create(dataDir, CreateOptions{Input: "/media/interview.mp4", DurationUs: 90_000_000}, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != NewID(now) {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Name != "interview" || created.SourceRef != "source-video" || created.FPS != 30 || created.Language != "en" {
		t.Fatalf("defaults not applied: %+v", created)
	}

	loaded, err := Load(dataDir, created.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Root() != filepath.Join(dataDir, created.ID) {
		t.Fatalf("unexpected root %q", loaded.Root())
	}
	if loaded.ArtifactPath(artifact.KindCutPlan) != filepath.Join(loaded.Root(), "cut-plan.json") {
		t.Fatalf("unexpected artifact path %q", loaded.ArtifactPath(artifact.KindCutPlan))
	}
	if loaded.Context().DurationUs != 90_000_000 {
		t.Fatalf("unexpected context %+v", loaded.Context())
	}

	if _, err := Create(dataDir, CreateOptions{ID: created.ID, Input: "/x.mp4", DurationUs: 1}, now); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate create to fail, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	dataDir := t.TempDir()
	tests := []CreateOptions{
		{Input: "/a.mp4"},
		{DurationUs: 10},
		{ID: "../escape", Input: "/a.mp4", DurationUs: 10},
		{Input: "/a.mp4", DurationUs: 10, Language: "not a language"},
	}
	for _, opts := range tests {
		if _, err := Create(dataDir, opts, time.Now()); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Create(%+v) expected validation error, got %v", opts, err)
		}
	}
}

func TestCreateNormalizesLanguage(t *testing.T) {
	for input, want := range map[string]string{"German": "de", "eng": "en", "pt-BR": "pt"} {
		p, err := Create(t.TempDir(), CreateOptions{Input: "/a.mp4", DurationUs: 10, Language: input}, time.Now())
		if err != nil {
			t.Fatalf("Create(language=%q): %v", input, err)
		}
		if p.Language != want {
			t.Fatalf("language %q normalized to %q, want %q", input, p.Language, want)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir(), "proj-404"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	dataDir := t.TempDir()
	for _, id := range []string{"proj-b", "proj-a"} {
		if _, err := Create(dataDir, CreateOptions{ID: id, Input: "/a.mp4", DurationUs: 10}, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	projects, err := List(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 || projects[0].ID != "proj-a" {
		t.Fatalf("unexpected listing %+v", projects)
	}
}

func TestLockIsExclusive(t *testing.T) {
	p, err := Create(t.TempDir(), CreateOptions{Input: "/a.mp4", DurationUs: 10}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	first, err := p.Lock()
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if _, err := p.Lock(); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatal(err)
	}
	second, err := p.Lock()
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	_ = second.Unlock()
}
