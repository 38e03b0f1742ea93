package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"splice/internal/config"
	"splice/internal/project"
)

// DefaultDurationUs is the source duration of projects made by NewProject.
const DefaultDurationUs int64 = 10_000_000

// NewProject creates a project under the config's data directory. The input
// path does not need to exist.
func NewProject(t testing.TB, cfg *config.Config, id string) *project.Project {
	t.Helper()

	p, err := project.Create(cfg.Paths.DataDir, project.CreateOptions{
		ID:         id,
		Input:      filepath.Join(BaseDir(cfg), "media", id+".mp4"),
		DurationUs: DefaultDurationUs,
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("project.Create: %v", err)
	}
	return p
}
