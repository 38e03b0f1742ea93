package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"splice/internal/config"
	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/project"
	"splice/internal/stage"
	"splice/internal/stageexec"
	"splice/internal/workflow"
)

var errLedgerDisabled = errors.New("run ledger is disabled (set [ledger] enabled = true)")

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	ledgerOnce sync.Once
	ledger     *ledger.Store
	ledgerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// ensureLedger opens the run ledger once. It returns errLedgerDisabled when
// the ledger is turned off.
func (c *commandContext) ensureLedger() (*ledger.Store, error) {
	c.ledgerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.ledgerErr = err
			return
		}
		if !cfg.Ledger.Enabled {
			c.ledgerErr = errLedgerDisabled
			return
		}
		c.ledger, c.ledgerErr = ledger.Open(cfg.Ledger.Path)
	})
	return c.ledger, c.ledgerErr
}

func (c *commandContext) close() {
	if c.ledger != nil {
		_ = c.ledger.Close()
		c.ledger = nil
	}
}

func (c *commandContext) loadProject(id string) (*project.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("project id is required (--project)")
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return project.Load(cfg.Paths.DataDir, id)
}

// orchestrator wires the configured stages, the provider dispatcher, and
// the ledger recorder into a pipeline orchestrator.
func (c *commandContext) orchestrator() (*workflow.Orchestrator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	rc, err := workflow.NewRunConfig(cfg)
	if err != nil {
		return nil, err
	}
	runner := stageexec.NewDispatcher(logger, stage.Builtins(cfg))

	var opts []workflow.Option
	store, err := c.ensureLedger()
	switch {
	case err == nil:
		opts = append(opts, workflow.WithRecorder(store))
	case errors.Is(err, errLedgerDisabled):
	default:
		logging.WarnWithContext(logger, "run ledger unavailable", "ledger_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, fmt.Sprintf("check or delete %s", cfg.Ledger.Path)),
			logging.String(logging.FieldImpact, "run history will not be recorded"),
		)
	}
	return workflow.New(rc, runner, logger, opts...), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
