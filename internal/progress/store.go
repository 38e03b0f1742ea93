package progress

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"splice/internal/artifact"
	"splice/internal/fileutil"
	"splice/internal/services"
)

// FileName is the checkpoint file name inside a project root.
var FileName = artifact.KindProgress.FileName()

// Store reads and writes checkpoints below a data directory, one project per
// subdirectory.
type Store struct {
	root string
}

// NewStore returns a store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{root: dataDir}
}

// Path returns the checkpoint path for a project.
func (s *Store) Path(projectID string) string {
	return filepath.Join(s.root, projectID, FileName)
}

// Checkpoint validates p and atomically replaces the project's checkpoint.
func (s *Store) Checkpoint(p *artifact.Progress) error {
	if p == nil {
		return errors.New("checkpoint: nil progress")
	}
	if strings.TrimSpace(p.ProjectID) == "" {
		return services.Wrap(services.ErrValidation, "", "checkpoint", "progress has no project id", nil)
	}
	if _, err := artifact.ValidateValue(artifact.KindProgress, p, artifact.Context{}); err != nil {
		return fmt.Errorf("checkpoint %s: %w", p.ProjectID, err)
	}
	if err := fileutil.WriteJSONAtomic(s.Path(p.ProjectID), p); err != nil {
		return services.Wrap(services.ErrTransient, "", "checkpoint", p.ProjectID, err)
	}
	return nil
}

// Load reads the project's last checkpoint. A missing checkpoint matches
// services.ErrNotFound; an unreadable one matches services.ErrValidation.
func (s *Store) Load(projectID string) (*artifact.Progress, error) {
	data, err := os.ReadFile(s.Path(projectID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "", "load progress", projectID, nil)
		}
		return nil, services.Wrap(services.ErrTransient, "", "load progress", projectID, err)
	}
	validated, err := artifact.Validate(artifact.KindProgress, data, artifact.Context{})
	if err != nil {
		return nil, fmt.Errorf("load progress %s: %w", projectID, err)
	}
	return validated.Progress, nil
}

// New starts a checkpoint for a run over the given steps.
func New(projectID, runID string, steps []string, now time.Time) *artifact.Progress {
	statuses := make(map[string]string, len(steps))
	for _, step := range steps {
		statuses[step] = artifact.StepPending
	}
	stamp := Timestamp(now)
	return &artifact.Progress{
		ProjectID:      projectID,
		RunID:          runID,
		StartedAt:      stamp,
		Steps:          append([]string(nil), steps...),
		TotalSteps:     int64(len(steps)),
		Status:         artifact.ProgressRunning,
		Detail:         "starting",
		UpdatedAt:      stamp,
		CompletedSteps: []string{},
		StepStatuses:   statuses,
	}
}

// Percent is the share of steps in a terminal step state.
func Percent(p *artifact.Progress) float64 {
	if p == nil || p.TotalSteps == 0 {
		return 0
	}
	finished := 0
	for _, status := range p.StepStatuses {
		if status == artifact.StepDone || status == artifact.StepSkipped {
			finished++
		}
	}
	return float64(finished) * 100 / float64(p.TotalSteps)
}

// Timestamp formats t the way checkpoints store times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
