package workflow

import (
	"fmt"
	"time"

	"splice/internal/config"
	"splice/internal/fallback"
	"splice/internal/services"
	"splice/internal/stage"
)

// StagePlan is the resolved execution plan for one stage.
type StagePlan struct {
	Definition stage.Definition
	// Providers is the fallback chain in order; never empty.
	Providers   []config.Provider
	Settings    config.Stage
	Timeout     time.Duration
	MaxAttempts int
}

// RunConfig is the immutable configuration of one run. It is resolved once
// from config.Config and shared read-only by every component of the run.
type RunConfig struct {
	Stages      []StagePlan
	Backoff     fallback.Backoff
	ScratchDir  string
	ProjectLogs bool
	LogLevel    string
}

// NewRunConfig resolves provider chains, timeouts, and retry bounds for
// every stage in the catalogue.
func NewRunConfig(cfg *config.Config) (RunConfig, error) {
	if cfg == nil {
		return RunConfig{}, services.Wrap(services.ErrConfiguration, "", "run config", "configuration is nil", nil)
	}
	rc := RunConfig{
		Backoff:     fallback.BackoffFromConfig(cfg.Pipeline),
		ScratchDir:  cfg.Paths.ScratchDir,
		ProjectLogs: cfg.Logging.ProjectLogs,
		LogLevel:    cfg.Logging.Level,
	}
	for _, def := range stage.Catalogue() {
		settings := cfg.Stage(def.Name)
		plan := StagePlan{
			Definition:  def,
			Settings:    settings,
			Timeout:     time.Duration(cfg.Pipeline.StageTimeoutSeconds) * time.Second,
			MaxAttempts: cfg.Pipeline.MaxRetriesPerProvider,
		}
		if settings.TimeoutSeconds > 0 {
			plan.Timeout = time.Duration(settings.TimeoutSeconds) * time.Second
		}
		if settings.MaxRetries > 0 {
			plan.MaxAttempts = settings.MaxRetries
		}
		for _, name := range settings.Providers {
			provider, ok := cfg.Provider(name)
			if !ok {
				return RunConfig{}, services.Wrap(services.ErrConfiguration, def.Name, "run config",
					fmt.Sprintf("unknown provider %q", name), nil)
			}
			plan.Providers = append(plan.Providers, provider)
		}
		if len(plan.Providers) == 0 {
			plan.Providers = []config.Provider{stage.BuiltinProvider(def.DefaultBuiltin)}
		}
		rc.Stages = append(rc.Stages, plan)
	}
	return rc, nil
}

// StageNames returns the planned stage names in order.
func (rc RunConfig) StageNames() []string {
	names := make([]string, 0, len(rc.Stages))
	for _, plan := range rc.Stages {
		names = append(names, plan.Definition.Name)
	}
	return names
}
