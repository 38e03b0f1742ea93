package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"splice/internal/artifact"
	"splice/internal/fileutil"
	"splice/internal/language"
	"splice/internal/services"
)

const (
	metadataFile    = "project.json"
	runSummaryFile  = "run-summary.json"
	telemetryDir    = "telemetry"
	assetsDir       = "assets"
	projectLogFile  = "pipeline.log"
	defaultSource   = "source-video"
	defaultFPS      = 30
	defaultLanguage = "en"
)

// Project is the persisted description of one editing project.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Input      string `json:"input"`
	SourceRef  string `json:"sourceRef"`
	DurationUs int64  `json:"durationUs"`
	FPS        int64  `json:"fps"`
	Language   string `json:"language"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`

	root string
}

// CreateOptions are the caller-supplied project attributes.
type CreateOptions struct {
	ID         string
	Name       string
	Input      string
	SourceRef  string
	DurationUs int64
	FPS        int64
	Language   string
}

// NewID returns a time-derived project identifier.
func NewID(now time.Time) string {
	return fmt.Sprintf("proj-%d", now.UnixMicro())
}

// Create writes a new project under dataDir.
func Create(dataDir string, opts CreateOptions, now time.Time) (*Project, error) {
	if opts.DurationUs <= 0 {
		return nil, services.Wrap(services.ErrValidation, "", "create project", fmt.Sprintf("duration must be positive, got %d", opts.DurationUs), nil)
	}
	input := strings.TrimSpace(opts.Input)
	if input == "" {
		return nil, services.Wrap(services.ErrValidation, "", "create project", "input path is required", nil)
	}
	if abs, err := filepath.Abs(input); err == nil {
		input = abs
	}

	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = NewID(now)
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	stamp := now.UTC().Format(time.RFC3339)
	p := &Project{
		ID:         id,
		Name:       strings.TrimSpace(opts.Name),
		Input:      input,
		SourceRef:  strings.TrimSpace(opts.SourceRef),
		DurationUs: opts.DurationUs,
		FPS:        opts.FPS,
		Language:   strings.TrimSpace(opts.Language),
		CreatedAt:  stamp,
		UpdatedAt:  stamp,
		root:       filepath.Join(dataDir, id),
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	if p.SourceRef == "" {
		p.SourceRef = defaultSource
	}
	if p.FPS <= 0 {
		p.FPS = defaultFPS
	}
	if p.Language == "" {
		p.Language = defaultLanguage
	} else {
		lang, err := language.Normalize(p.Language)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "create project", "invalid language", err)
		}
		p.Language = lang
	}

	if _, err := os.Stat(p.MetadataPath()); err == nil {
		return nil, services.Wrap(services.ErrValidation, "", "create project", fmt.Sprintf("project %s already exists", id), nil)
	}
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	if err := fileutil.WriteJSONAtomic(p.MetadataPath(), p); err != nil {
		return nil, fmt.Errorf("write project metadata: %w", err)
	}
	return p, nil
}

// Load reads an existing project. A missing project matches
// services.ErrNotFound.
func Load(dataDir, id string) (*Project, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	root := filepath.Join(dataDir, id)
	data, err := os.ReadFile(filepath.Join(root, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "", "load project", fmt.Sprintf("project %s", id), nil)
		}
		return nil, fmt.Errorf("read project metadata: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "load project", fmt.Sprintf("project %s metadata", id), err)
	}
	if p.ID != id {
		return nil, services.Wrap(services.ErrValidation, "", "load project", fmt.Sprintf("metadata id %q does not match directory %q", p.ID, id), nil)
	}
	if p.DurationUs <= 0 {
		return nil, services.Wrap(services.ErrValidation, "", "load project", fmt.Sprintf("project %s has no source duration", id), nil)
	}
	p.root = root
	return &p, nil
}

// List returns every project under dataDir ordered by id. Directories
// without readable metadata are skipped.
func List(dataDir string) ([]*Project, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]*Project, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := Load(dataDir, entry.Name())
		if err != nil {
			continue
		}
		projects = append(projects, p)
	}
	slices.SortFunc(projects, func(a, b *Project) int {
		return strings.Compare(a.ID, b.ID)
	})
	return projects, nil
}

// Root returns the project's storage directory.
func (p *Project) Root() string { return p.root }

// MetadataPath returns the path of project.json.
func (p *Project) MetadataPath() string { return filepath.Join(p.root, metadataFile) }

// ArtifactPath returns the file an artifact kind is stored in.
func (p *Project) ArtifactPath(kind artifact.Kind) string {
	return filepath.Join(p.root, kind.FileName())
}

// RunSummaryPath returns the path of the last run summary.
func (p *Project) RunSummaryPath() string { return filepath.Join(p.root, runSummaryFile) }

// TelemetryDir holds the per-project event log.
func (p *Project) TelemetryDir() string { return filepath.Join(p.root, telemetryDir) }

// AssetsDir holds stock media copied in by asset resolution.
func (p *Project) AssetsDir() string { return filepath.Join(p.root, assetsDir) }

// LogPath is the per-project pipeline log.
func (p *Project) LogPath() string { return filepath.Join(p.root, projectLogFile) }

// Context returns the validation context for timed artifacts.
func (p *Project) Context() artifact.Context {
	return artifact.Context{DurationUs: p.DurationUs}
}

func validateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return services.Wrap(services.ErrValidation, "", "project id", "must not be empty", nil)
	case id == "." || id == "..", strings.ContainsAny(id, `/\`):
		return services.Wrap(services.ErrValidation, "", "project id", fmt.Sprintf("invalid project id %q", id), nil)
	}
	return nil
}
