package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"splice/internal/services"
	"splice/internal/workflow"
)

// errRunFailed is returned after a failed run's summary has been printed.
var errRunFailed = errors.New("pipeline run failed")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stage pipeline for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			summary, runErr := runProject(cmd.Context(), ctx, orch, projectID)
			if err := writeJSON(cmd, summary); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("%w: %s", errRunFailed, summaryError(summary, runErr))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	return cmd
}

func newRunBatchCommand(ctx *commandContext) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "run-batch PROJECT_ID...",
		Short: "Run the pipeline for several projects concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			limit := cfg.Pipeline.MaxConcurrentProjects
			if concurrency > 0 {
				limit = concurrency
			}
			summaries, failed := runBatch(cmd.Context(), ctx, orch, args, limit)
			if err := writeJSON(cmd, summaries); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d projects failed", errRunFailed, failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Projects to run at once (defaults to pipeline.max_concurrent_projects)")
	return cmd
}

// runBatch runs each project on its own goroutine, at most limit at a time.
// A failing project does not stop the others. Summaries keep argument order.
func runBatch(ctx context.Context, c *commandContext, orch *workflow.Orchestrator, ids []string, limit int) ([]*workflow.Summary, int) {
	summaries := make([]*workflow.Summary, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			summaries[i], errs[i] = runProject(ctx, c, orch, id)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	return summaries, failed
}

// runProject loads and locks a project, then runs the pipeline. The
// returned summary is never nil.
func runProject(ctx context.Context, c *commandContext, orch *workflow.Orchestrator, id string) (*workflow.Summary, error) {
	p, err := c.loadProject(id)
	if err != nil {
		return failedSummary(id, err), err
	}
	lock, err := p.Lock()
	if err != nil {
		return failedSummary(id, err), err
	}
	defer func() { _ = lock.Unlock() }()

	summary, err := orch.Run(ctx, p)
	if summary == nil {
		summary = failedSummary(id, err)
	}
	return summary, err
}

func failedSummary(id string, err error) *workflow.Summary {
	s := &workflow.Summary{
		OK:             false,
		ProjectID:      id,
		CompletedAt:    time.Now().UTC().Format(time.RFC3339Nano),
		CompletedSteps: []string{},
	}
	if err != nil {
		s.Error = err.Error()
		s.ErrorKind = services.Kind(err)
	}
	return s
}

func summaryError(s *workflow.Summary, err error) string {
	if s != nil && s.FailedStep != "" {
		return fmt.Sprintf("stage %s: %s", s.FailedStep, s.Error)
	}
	if err != nil {
		return err.Error()
	}
	return "unknown error"
}
