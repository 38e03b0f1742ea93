package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"splice/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var runID string
	var limit int
	var prune int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := ctx.ensureLedger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			reqCtx := cmd.Context()

			if cmd.Flags().Changed("prune") {
				if projectID == "" {
					return errors.New("--prune requires --project")
				}
				removed, err := store.Prune(reqCtx, projectID, prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d run(s) of %s\n", removed, projectID)
				return nil
			}

			if runID != "" {
				events, err := store.Events(reqCtx, runID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, events)
				}
				if len(events) == 0 {
					fmt.Fprintf(out, "No events recorded for run %s\n", runID)
					return nil
				}
				fmt.Fprintln(out, renderEvents(events))
				return nil
			}

			runs, err := store.ListRuns(reqCtx, projectID, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []ledger.Run{}
				}
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Only show runs of this project")
	cmd.Flags().StringVar(&runID, "run", "", "Show the recorded events of one run")
	cmd.Flags().IntVarP(&limit, "limit", "n", ledger.DefaultHistoryLimit, "Maximum number of runs to show")
	cmd.Flags().IntVar(&prune, "prune", 0, "Keep only the newest N runs of --project")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func renderRuns(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = formatElapsed(d.Milliseconds())
		}
		started := "-"
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			r.RunID,
			r.ProjectID,
			started,
			r.Status,
			strconv.Itoa(r.StepsCompleted) + "/" + strconv.Itoa(r.StepsTotal),
			duration,
			dash(r.FailedStep),
		})
	}
	return renderTable(
		[]column{left("Run"), left("Project"), left("Started"), left("Status"), right("Stages"), right("Duration"), left("Failed Stage")},
		rows,
	)
}
