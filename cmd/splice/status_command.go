package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"splice/internal/artifact"
	"splice/internal/language"
	"splice/internal/progress"
	"splice/internal/project"
	"splice/internal/services"
	"splice/internal/stage"
	"splice/internal/workflow"
)

type statusReport struct {
	Project  *project.Project          `json:"project"`
	Progress *artifact.Progress        `json:"progress"`
	Summary  *workflow.Summary         `json:"summary"`
	Events   []workflow.TelemetryEvent `json:"events"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var jsonOut bool
	var eventCount int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a project's pipeline progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.loadProject(projectID)
			if err != nil {
				return err
			}
			report, err := loadStatus(p, cmd.Flags().Changed("events"), eventCount)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			renderStatus(out, report, shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().IntVar(&eventCount, "events", workflow.DefaultEventTail, fmt.Sprintf("Show the last N telemetry events (1-%d)", workflow.MaxEventTail))
	return cmd
}

func loadStatus(p *project.Project, withEvents bool, n int) (*statusReport, error) {
	report := &statusReport{Project: p, Events: []workflow.TelemetryEvent{}}

	cp, err := progress.NewStore(filepath.Dir(p.Root())).Load(p.ID)
	switch {
	case err == nil:
		report.Progress = cp
	case errors.Is(err, services.ErrNotFound):
	default:
		return nil, err
	}

	if report.Summary, err = workflow.ReadSummary(p.RunSummaryPath()); err != nil {
		return nil, err
	}
	if withEvents {
		if report.Events, err = workflow.TailEvents(workflow.EventsPath(p), n); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func renderStatus(out io.Writer, r *statusReport, colorize bool) {
	writeLines(out, renderSectionHeader("Project "+r.Project.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Name", statusInfo, r.Project.Name, colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatMicros(r.Project.DurationUs), colorize))
	fmt.Fprintln(out, renderStatusLine("Language", statusInfo, fmt.Sprintf("%s (%s)", language.DisplayName(r.Project.Language), r.Project.Language), colorize))

	cp := r.Progress
	if cp == nil {
		fmt.Fprintln(out, renderStatusLine("Pipeline", statusInfo, "No runs yet", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Pipeline", progressKind(cp.Status), fmt.Sprintf("%s (%.0f%%)", cp.Status, cp.Percent), colorize))
	if cp.CurrentStep != "" {
		fmt.Fprintln(out, renderStatusLine("Current stage", statusInfo, stage.Label(cp.CurrentStep), colorize))
	}
	if cp.Detail != "" {
		fmt.Fprintln(out, renderStatusLine("Detail", progressKind(cp.Status), cp.Detail, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, formatTimestamp(cp.UpdatedAt), colorize))
	fmt.Fprintln(out)

	var steps map[string]workflow.StepSummary
	if r.Summary != nil && r.Summary.RunID == cp.RunID {
		steps = r.Summary.Steps
	}
	rows := make([][]string, 0, len(cp.Steps))
	for i, name := range cp.Steps {
		status := cp.StepStatuses[name]
		if status == "" {
			status = artifact.StepPending
		}
		step := steps[name]
		attempts := "-"
		if step.Attempts > 0 {
			attempts = strconv.Itoa(step.Attempts)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			stage.Label(name),
			status,
			dash(step.Provider),
			attempts,
			formatElapsed(step.ElapsedMs),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{right("#"), left("Stage"), left("Status"), left("Provider"), right("Attempts"), right("Elapsed")},
		rows,
	))

	if r.Summary != nil && r.Summary.AIDecisions != nil && r.Summary.AIDecisions.Total > 0 {
		fmt.Fprintln(out, renderStatusLine("AI decisions", statusInfo, strconv.Itoa(r.Summary.AIDecisions.Total), colorize))
	}

	if len(r.Events) == 0 {
		return
	}
	fmt.Fprintln(out)
	writeLines(out, renderSectionHeader("Recent events", colorize))
	fmt.Fprintln(out, renderEvents(r.Events))
}

func renderEvents(events []workflow.TelemetryEvent) string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		attempt := "-"
		if ev.Attempt > 0 {
			attempt = strconv.Itoa(ev.Attempt)
		}
		detail := ev.Detail
		switch {
		case ev.Kind != "" && detail != "":
			detail = ev.Kind + ": " + detail
		case ev.Kind != "":
			detail = ev.Kind
		}
		rows = append(rows, []string{
			formatTimestamp(ev.At),
			ev.Type,
			dash(ev.Stage),
			dash(ev.Status),
			dash(ev.Provider),
			attempt,
			dash(detail),
		})
	}
	return renderTable(
		[]column{left("At"), left("Event"), left("Stage"), left("Status"), left("Provider"), right("Attempt"), clipped("Detail", 60)},
		rows,
	)
}
