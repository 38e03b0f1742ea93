package workflow

import (
	"errors"
	"io/fs"

	"splice/internal/artifact"
	"splice/internal/project"
	"splice/internal/stage"
)

// SourceFor describes a project's media for stage invocations.
func SourceFor(p *project.Project) stage.Source {
	return stage.Source{
		ProjectID:   p.ID,
		ProjectRoot: p.Root(),
		Input:       p.Input,
		SourceRef:   p.SourceRef,
		DurationUs:  p.DurationUs,
		FPS:         p.FPS,
		Language:    p.Language,
		AssetsDir:   p.AssetsDir(),
	}
}

// ArtifactReport is the validation outcome for one artifact file.
type ArtifactReport struct {
	Kind        artifact.Kind        `json:"kind"`
	Path        string               `json:"path"`
	Present     bool                 `json:"present"`
	Valid       bool                 `json:"valid"`
	Placeholder bool                 `json:"placeholder,omitempty"`
	Violations  []artifact.Violation `json:"violations,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Failed reports whether the artifact exists but did not validate.
func (r ArtifactReport) Failed() bool {
	return r.Present && !r.Valid
}

// InspectArtifacts validates every artifact file of a project in pipeline
// order, each against the context the pipeline would use. Upstream
// artifacts that fail validation do not contribute to downstream contexts.
// A non-empty only limits the report to that kind.
func InspectArtifacts(p *project.Project, only artifact.Kind) []ArtifactReport {
	src := SourceFor(p)
	var inputs stage.Inputs
	var reports []ArtifactReport
	seen := make(map[artifact.Kind]bool)

	for _, def := range stage.Catalogue() {
		if seen[def.Kind] {
			continue
		}
		seen[def.Kind] = true
		report, v, ok := inspect(p.ArtifactPath(def.Kind), def.Kind, def.Context(src, inputs))
		if ok {
			inputs.Set(v)
		}
		if only == "" || only == def.Kind {
			reports = append(reports, report)
		}
	}
	if only == "" || only == artifact.KindProgress {
		report, _, _ := inspect(p.ArtifactPath(artifact.KindProgress), artifact.KindProgress, artifact.Context{})
		reports = append(reports, report)
	}
	return reports
}

func inspect(path string, kind artifact.Kind, vctx artifact.Context) (ArtifactReport, artifact.Validated, bool) {
	report := ArtifactReport{Kind: kind, Path: path}
	v, err := artifact.Load(path, kind, vctx)
	switch {
	case err == nil:
		report.Present = true
		report.Valid = true
		report.Placeholder = v.Placeholder()
		return report, v, true
	case errors.Is(err, fs.ErrNotExist):
		return report, artifact.Validated{}, false
	}
	report.Present = true
	if violations, ok := artifact.AsViolations(err); ok {
		report.Violations = violations.Items
	} else {
		report.Error = err.Error()
	}
	return report, artifact.Validated{}, false
}
