package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"splice/internal/logging"
	"splice/internal/progress"
	"splice/internal/project"
	"splice/internal/services"
	"splice/internal/stageexec"
)

// ErrResumabilityMismatch marks an artifact left by an earlier run that can
// no longer be reused. The stage is run again.
var ErrResumabilityMismatch = errors.New("existing artifact cannot be reused")

// Orchestrator runs the stage pipeline for projects. It holds no per-run
// state, so one Orchestrator may run different projects concurrently.
type Orchestrator struct {
	cfg      RunConfig
	runner   stageexec.Runner
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	newRunID func() string
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithRecorder reports run history to r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an orchestrator. logger may be nil.
func New(cfg RunConfig, runner stageexec.Runner, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		recorder: nopRecorder{},
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline for p. The returned summary is always non-nil;
// the error is non-nil when the run failed, in which case the summary
// describes the failure.
func (o *Orchestrator) Run(ctx context.Context, p *project.Project) (*Summary, error) {
	runID := o.newRunID()
	ctx = services.WithRunID(services.WithProjectID(ctx, p.ID), runID)

	base, closeLog := o.projectLogger(p)
	defer closeLog()

	r := &run{
		o:         o,
		ctx:       ctx,
		project:   p,
		logger:    base,
		store:     progress.NewStore(filepath.Dir(p.Root())),
		events:    EventsPath(p),
		src:       SourceFor(p),
		states:    make(map[string]State, len(o.cfg.Stages)),
		steps:     make(map[string]StepSummary, len(o.cfg.Stages)),
		decisions: newAIDecisions(),
		completed: []string{},
	}
	return r.execute()
}

func (o *Orchestrator) projectLogger(p *project.Project) (*slog.Logger, func()) {
	if !o.cfg.ProjectLogs {
		return o.logger, func() {}
	}
	handler, closer, err := logging.OpenFileHandler(p.LogPath(), o.cfg.LogLevel)
	if err != nil {
		logging.WarnWithContext(o.logger, "project log unavailable", "project_log_unavailable",
			logging.String(logging.FieldProjectID, p.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the project directory"),
			logging.String(logging.FieldImpact, "run logs go to the main log only"),
		)
		return o.logger, func() {}
	}
	return logging.TeeLogger(o.logger, handler), func() { closeQuietly(closer) }
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
