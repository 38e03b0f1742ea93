package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	"splice/internal/artifact"
	"splice/internal/config"
	"splice/internal/fallback"
	"splice/internal/fileutil"
	"splice/internal/logging"
	"splice/internal/progress"
	"splice/internal/project"
	"splice/internal/services"
	"splice/internal/stage"
	"splice/internal/stageexec"
)

// run holds the mutable state of one pipeline execution.
type run struct {
	o       *Orchestrator
	ctx     context.Context
	project *project.Project
	logger  *slog.Logger
	store   *progress.Store
	events  string
	src     stage.Source

	state     State
	progress  *artifact.Progress
	inputs    stage.Inputs
	states    map[string]State
	steps     map[string]StepSummary
	decisions *AIDecisions
	completed []string
}

func (r *run) execute() (*Summary, error) {
	logger := logging.WithContext(r.ctx, r.logger)
	r.logPreviousRun(logger)

	runID, _ := services.RunIDFromContext(r.ctx)
	names := r.o.cfg.StageNames()
	r.progress = progress.New(r.project.ID, runID, names, r.o.now())
	for _, name := range names {
		r.states[name] = StatePending
	}
	r.state = StatePending
	r.advancePipeline(EventStart)

	if err := r.o.recorder.StartRun(r.ctx, RunRecord{
		RunID:     runID,
		ProjectID: r.project.ID,
		StartedAt: r.progress.StartedAt,
		Steps:     names,
	}); err != nil {
		r.recorderFailed(logger, err)
	}
	r.emit(TelemetryEvent{Type: EventRunStarted, Status: string(StateRunning), Detail: fmt.Sprintf("%d stages", len(names))})
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Strings("stages", names),
	)

	if err := r.checkpoint(); err != nil {
		return r.fail("", err)
	}
	for i, plan := range r.o.cfg.Stages {
		if err := r.runStage(i, plan); err != nil {
			return r.fail(plan.Definition.Name, err)
		}
	}
	return r.complete()
}

func (r *run) logPreviousRun(logger *slog.Logger) {
	prev, err := r.store.Load(r.project.ID)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return
	case err != nil:
		logging.WarnWithContext(logger, "previous progress unreadable", "progress_unreadable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the checkpoint will be replaced by this run"),
			logging.String(logging.FieldImpact, "stages are still skipped based on their artifacts"),
		)
	case prev.Status == artifact.ProgressFailed:
		logger.Info("resuming after failed run",
			logging.String(logging.FieldEventType, "run_resume"),
			logging.String("previous_run_id", prev.RunID),
			logging.String("failed_step", prev.CurrentStep),
			logging.Strings("completed_steps", prev.CompletedSteps),
		)
	case prev.Status == artifact.ProgressRunning:
		logging.WarnWithContext(logger, "previous run did not finish", "run_interrupted",
			logging.String("previous_run_id", prev.RunID),
			logging.String("last_step", prev.CurrentStep),
			logging.String(logging.FieldErrorHint, "check the project log for the interrupted stage"),
			logging.String(logging.FieldImpact, "the interrupted stage is run again"),
		)
	}
}

func (r *run) runStage(index int, plan StagePlan) error {
	def := plan.Definition
	name := def.Name
	ctx := services.WithStage(r.ctx, name)
	logger := logging.WithContext(ctx, r.logger)
	started := r.o.now()
	vctx := def.Context(r.src, r.inputs)
	path := r.project.ArtifactPath(def.Kind)

	if v, ok := r.reusable(logger, def, path, vctx); ok {
		if err := r.advanceStage(name, EventSkip); err != nil {
			return err
		}
		summary := stage.Summarize(name, v)
		r.inputs.Set(v)
		r.decisions.add(summary.Decisions)
		r.steps[name] = StepSummary{Status: string(StateSkipped), Provider: summary.Provider, Metrics: summary.Metrics}
		r.markStep(index, name, "reused "+def.Kind.FileName())
		logger.Info("stage skipped",
			logging.Args(append(logging.DecisionAttrs("stage_skip", "skipped", "valid artifact from an earlier run"),
				logging.String(logging.FieldEventType, "stage_skip"),
			)...)...,
		)
		r.emit(TelemetryEvent{Type: EventStageTransition, Stage: name, Status: string(StateSkipped)})
		return r.checkpoint()
	}

	if err := def.Ready(r.inputs); err != nil {
		return services.Wrap(services.ErrValidation, name, "prepare", "upstream artifact missing", err)
	}
	if err := r.advanceStage(name, EventStart); err != nil {
		return err
	}
	r.markStep(index, name, stage.Label(name))
	if err := r.checkpoint(); err != nil {
		return err
	}
	r.emit(TelemetryEvent{Type: EventStageTransition, Stage: name, Status: string(StateRunning)})
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Strings("providers", providerNames(plan.Providers)),
		logging.Duration("timeout", plan.Timeout),
	)

	req := def.Request(r.src, r.inputs, plan.Settings)
	chain, err := r.chain(def, plan, req)
	if err != nil {
		return err
	}

	var accepted artifact.Validated
	policy := fallback.New(r.o.runner, r.o.cfg.Backoff, logger)
	policy.Observe = func(a fallback.Attempt) {
		status := "ok"
		if !a.OK {
			status = "failed"
		}
		r.emit(TelemetryEvent{
			Type:      EventProviderAttempt,
			Stage:     name,
			Status:    status,
			Provider:  a.Provider,
			Attempt:   a.Number,
			Kind:      a.Kind,
			Detail:    a.Message,
			ElapsedMs: a.Elapsed.Milliseconds(),
		})
	}
	outcome, err := policy.Run(ctx, fallback.Request{
		StageID:     name,
		Chain:       chain,
		MaxAttempts: plan.MaxAttempts,
		Timeout:     plan.Timeout,
		Accept: func(_ string, raw json.RawMessage) error {
			v, err := artifact.Validate(def.Kind, raw, vctx)
			if err != nil {
				return err
			}
			accepted = v
			return nil
		},
	})
	step := StepSummary{
		Attempts:  len(outcome.Attempts),
		Fallbacks: fallbacksFrom(outcome.History),
	}
	if err != nil {
		step.Status = string(StateFailed)
		step.ElapsedMs = time.Since(started).Milliseconds()
		r.steps[name] = step
		return err
	}

	stage.Stamp(accepted, outcome.Provider, modelFor(plan, outcome.Provider))
	data, err := accepted.Encode()
	if err != nil {
		return services.Wrap(services.ErrValidation, name, "encode artifact", def.Kind.FileName(), err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, name, "persist artifact", path, err)
	}
	if err := r.advanceStage(name, EventSucceed); err != nil {
		return err
	}

	summary := stage.Summarize(name, accepted)
	r.inputs.Set(accepted)
	r.decisions.add(summary.Decisions)
	step.Status = string(StateDone)
	step.Provider = outcome.Provider
	step.Metrics = summary.Metrics
	step.ElapsedMs = time.Since(started).Milliseconds()
	r.steps[name] = step
	r.markStep(index, name, fmt.Sprintf("%s via %s", stage.Label(name), outcome.Provider))
	if err := r.checkpoint(); err != nil {
		return err
	}
	r.emit(TelemetryEvent{Type: EventStageTransition, Stage: name, Status: string(StateDone), Provider: outcome.Provider, Attempt: len(outcome.Attempts)})
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldProvider, outcome.Provider),
		logging.Int("attempts", len(outcome.Attempts)),
		logging.Int("fallbacks", len(outcome.History)),
		logging.Any("metrics", summary.Metrics),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

// reusable loads an artifact left by an earlier run and reports whether the
// stage may be skipped.
func (r *run) reusable(logger *slog.Logger, def stage.Definition, path string, vctx artifact.Context) (artifact.Validated, bool) {
	v, err := artifact.Load(path, def.Kind, vctx)
	if errors.Is(err, fs.ErrNotExist) {
		return artifact.Validated{}, false
	}
	if err != nil {
		logging.WarnWithContext(logger, "existing artifact cannot be reused", "resume_mismatch",
			logging.Error(fmt.Errorf("%w: %w", ErrResumabilityMismatch, err)),
			logging.String("artifact", def.Kind.FileName()),
			logging.String(logging.FieldErrorHint, "the artifact no longer validates against current inputs"),
			logging.String(logging.FieldImpact, "stage runs again and overwrites the artifact"),
		)
		return artifact.Validated{}, false
	}
	if !def.Real(v) {
		logger.Info("placeholder artifact will be regenerated",
			logging.Args(logging.DecisionAttrs("stage_skip", "rerun", "artifact is a placeholder")...)...,
		)
		return artifact.Validated{}, false
	}
	return v, true
}

func (r *run) chain(def stage.Definition, plan StagePlan, req stage.Request) ([]stageexec.Invocation, error) {
	var prompt stageexec.Prompt
	if slices.ContainsFunc(plan.Providers, func(p config.Provider) bool { return p.Kind == config.ProviderLLM }) {
		var err error
		prompt, err = def.Prompt(req)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, def.Name, "build prompt", "", err)
		}
	}
	params := stageexec.Params{
		Input:      r.project.Input,
		DurationUs: r.project.DurationUs,
		SampleRate: plan.Settings.SampleRate,
		Model:      plan.Settings.Model,
		Language:   req.Language,
	}
	chain := make([]stageexec.Invocation, 0, len(plan.Providers))
	for _, provider := range plan.Providers {
		chain = append(chain, stageexec.Invocation{
			ProjectID:   r.project.ID,
			ProjectRoot: r.project.Root(),
			Provider:    provider,
			Params:      params,
			Request:     &req,
			Prompt:      prompt,
			ScratchRoot: r.o.cfg.ScratchDir,
		})
	}
	return chain, nil
}

func (r *run) complete() (*Summary, error) {
	r.advancePipeline(EventSucceed)
	now := r.o.now()
	p := r.progress
	p.Status = artifact.ProgressDone
	p.CurrentStepIndex = p.TotalSteps
	p.Detail = "complete"
	p.Percent = 100
	if err := r.checkpoint(); err != nil {
		return r.fail("", err)
	}

	summary := r.baseSummary(now)
	summary.OK = true
	summary.AIDecisions = r.decisions
	r.finish(summary)
	logging.WithContext(r.ctx, r.logger).Info("pipeline completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("decisions", r.decisions.Total),
		logging.Strings("completed_steps", r.completed),
	)
	return summary, nil
}

func (r *run) fail(stageName string, cause error) (*Summary, error) {
	logger := logging.WithContext(r.ctx, r.logger)
	if stageName != "" {
		if err := r.advanceStage(stageName, EventFail); err != nil {
			logger.Debug("stage already settled", logging.Error(err))
		}
	}
	r.advancePipeline(EventFail)

	now := r.o.now()
	if p := r.progress; p != nil {
		p.Status = artifact.ProgressFailed
		if stageName != "" {
			p.CurrentStep = stageName
			if i := slices.Index(p.Steps, stageName); i >= 0 {
				p.CurrentStepIndex = int64(i)
			}
			p.StepStatuses[stageName] = string(StateFailed)
		}
		p.Detail = cause.Error()
		p.Percent = progress.Percent(p)
		if err := r.checkpoint(); err != nil {
			logging.ErrorWithContext(logger, "failed to persist failure checkpoint", "checkpoint_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions on the data directory"),
			)
		}
	}

	summary := r.baseSummary(now)
	summary.Error = cause.Error()
	summary.ErrorKind = services.Kind(cause)
	summary.FailedStep = stageName
	r.finish(summary)
	logging.ErrorWithContext(logger, "pipeline failed", "run_failed",
		logging.String(logging.FieldStage, stageName),
		logging.String("error_kind", summary.ErrorKind),
		logging.Strings("completed_steps", r.completed),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "fix the failing stage and run again; completed stages are reused"),
	)
	return summary, cause
}

func (r *run) baseSummary(now time.Time) *Summary {
	summary := &Summary{
		ProjectID:      r.project.ID,
		CompletedAt:    progress.Timestamp(now),
		Steps:          r.steps,
		CompletedSteps: append([]string{}, r.completed...),
	}
	if r.progress != nil {
		summary.RunID = r.progress.RunID
		summary.StartedAt = r.progress.StartedAt
	}
	return summary
}

func (r *run) finish(summary *Summary) {
	logger := logging.WithContext(r.ctx, r.logger)
	if err := WriteSummary(r.project.RunSummaryPath(), summary); err != nil {
		logging.WarnWithContext(logger, "failed to write run summary", "summary_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the project directory"),
			logging.String(logging.FieldImpact, "run-summary.json is stale"),
		)
	}
	status := string(StateDone)
	if !summary.OK {
		status = string(StateFailed)
	}
	r.emit(TelemetryEvent{Type: EventRunFinished, Stage: summary.FailedStep, Status: status, Detail: summary.Error})
	if err := r.o.recorder.FinishRun(r.ctx, summary); err != nil {
		r.recorderFailed(logger, err)
	}
}

// advanceStage applies ev to a stage's state machine.
func (r *run) advanceStage(name string, ev Event) error {
	next, err := Transition(r.states[name], ev)
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	r.states[name] = next
	if next == StateDone || next == StateSkipped {
		r.completed = append(r.completed, name)
	}
	return nil
}

func (r *run) advancePipeline(ev Event) {
	if next, err := Transition(r.state, ev); err == nil {
		r.state = next
	}
}

// markStep mirrors a stage's state into the progress snapshot.
func (r *run) markStep(index int, name, detail string) {
	p := r.progress
	p.CurrentStep = name
	p.CurrentStepIndex = int64(index)
	p.StepStatuses[name] = string(r.states[name])
	p.Detail = detail
	p.CompletedSteps = append([]string{}, r.completed...)
	p.Percent = progress.Percent(p)
}

func (r *run) checkpoint() error {
	r.progress.UpdatedAt = progress.Timestamp(r.o.now())
	if err := r.store.Checkpoint(r.progress); err != nil {
		return services.Wrap(services.ErrTransient, r.progress.CurrentStep, "checkpoint", "", err)
	}
	return nil
}

func (r *run) emit(ev TelemetryEvent) {
	ev.At = progress.Timestamp(r.o.now())
	ev.RunID = r.progress.RunID
	ev.ProjectID = r.project.ID
	logger := logging.WithContext(r.ctx, r.logger)
	if err := fileutil.AppendJSONLine(r.events, ev); err != nil {
		logger.Debug("telemetry append failed", logging.Error(err))
	}
	if err := r.o.recorder.RecordEvent(r.ctx, ev); err != nil {
		r.recorderFailed(logger, err)
	}
}

func (r *run) recorderFailed(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "run history not recorded", "ledger_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the ledger database path"),
		logging.String(logging.FieldImpact, "splice history may be incomplete"),
	)
}

func providerNames(providers []config.Provider) []string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	return names
}

func modelFor(plan StagePlan, provider string) string {
	if plan.Settings.Model != "" {
		return plan.Settings.Model
	}
	for _, p := range plan.Providers {
		if p.Name == provider {
			return p.Model
		}
	}
	return ""
}
