package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mulmocast/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check encoder binaries, generator commands, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			lines := renderSectionHeader("Dependencies", colorize)
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind, message := statusOK, status.Command
				switch {
				case status.Path != "":
					message = status.Path
				case status.Command == "":
					message = status.Description
				}
				if !status.Available {
					message = status.Detail
					if status.Optional {
						kind = statusWarn
					} else {
						kind = statusError
						failures++
					}
				}
				lines = append(lines, renderStatusLine(status.Name, kind, message, colorize))
			}

			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Environment", colorize)...)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failures++
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failures > 0 {
				return fmt.Errorf("preflight failed: %s", plural(failures, "check"))
			}
			return nil
		},
	}
}
