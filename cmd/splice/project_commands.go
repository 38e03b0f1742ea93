package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/project"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create and list projects",
	}
	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	return projectCmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var opts project.CreateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project for a source video",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p, err := project.Create(cfg.Paths.DataDir, opts, time.Now())
			if err != nil {
				return err
			}
			return writeJSON(cmd, p)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "Project id (defaults to a time-derived id)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "Source video path")
	cmd.Flags().Int64Var(&opts.DurationUs, "duration-us", 0, "Source duration in microseconds")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name (defaults to the input file name)")
	cmd.Flags().Int64Var(&opts.FPS, "fps", 0, "Frame rate (defaults to 30)")
	cmd.Flags().StringVar(&opts.Language, "language", "", "Spoken language (defaults to en)")
	cmd.Flags().StringVar(&opts.SourceRef, "source-ref", "", "Source reference used by timeline clips")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("duration-us")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			projects, err := project.List(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			if jsonOut {
				if projects == nil {
					projects = []*project.Project{}
				}
				return writeJSON(cmd, projects)
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects")
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					p.ID,
					p.Name,
					formatMicros(p.DurationUs),
					strconv.FormatInt(p.FPS, 10),
					p.Language,
					formatTimestamp(p.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{left("ID"), clipped("Name", 40), right("Duration"), right("FPS"), left("Lang"), left("Created")},
				rows,
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a project's metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.loadProject(projectID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, p)
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	return cmd
}
