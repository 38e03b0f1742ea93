package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"splice/internal/artifact"
	"splice/internal/workflow"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var kindName string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a project's artifacts on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.loadProject(projectID)
			if err != nil {
				return err
			}
			var kind artifact.Kind
			if kindName != "" {
				if kind, err = artifact.ParseKind(kindName); err != nil {
					return err
				}
			}
			reports := workflow.InspectArtifacts(p, kind)

			if jsonOut {
				if err := writeJSON(cmd, reports); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				renderReports(out, reports, shouldColorize(out))
			}

			failed := 0
			for _, r := range reports {
				if r.Failed() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d artifact(s) failed validation", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().StringVarP(&kindName, "kind", "k", "", "Only validate this artifact kind (e.g. cut-plan)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func renderReports(out io.Writer, reports []workflow.ArtifactReport, colorize bool) {
	for _, r := range reports {
		label := string(r.Kind)
		switch {
		case !r.Present:
			fmt.Fprintln(out, renderStatusLine(label, statusInfo, "not generated", colorize))
		case r.Valid && r.Placeholder:
			fmt.Fprintln(out, renderStatusLine(label, statusWarn, "valid placeholder", colorize))
		case r.Valid:
			fmt.Fprintln(out, renderStatusLine(label, statusOK, "valid", colorize))
		case r.Error != "":
			fmt.Fprintln(out, renderStatusLine(label, statusError, r.Error, colorize))
		default:
			fmt.Fprintln(out, renderStatusLine(label, statusError, fmt.Sprintf("%d violation(s)", len(r.Violations)), colorize))
			for _, v := range r.Violations {
				fmt.Fprintf(out, "      - %s\n", v.String())
			}
		}
	}
}
