package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"splice/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var skipLLM bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories and providers before running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var opts []preflight.Option
			if skipLLM {
				opts = append(opts, preflight.WithoutLLM())
			}
			results := preflight.RunAll(cmd.Context(), cfg, opts...)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			writeLines(out, renderSectionHeader("Preflight", colorize))
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, checkKind(r.Passed, r.Optional), r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Skip LLM endpoint checks")
	return cmd
}
