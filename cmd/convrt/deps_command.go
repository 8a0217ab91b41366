package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"convrt/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and the inference engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.Check(cmd.Context(), cfg)
			missing := deps.Missing(statuses)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, status := range statuses {
					fmt.Fprintln(out, renderDependencyLine(status, colorize))
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d required dependency(s) missing", len(missing))
			}
			return nil
		},
	}
}

func renderDependencyLine(status deps.Status, colorize bool) string {
	kind := statusOK
	message := status.Command
	if status.Version != "" {
		message = fmt.Sprintf("%s (%s)", status.Command, status.Version)
	}
	if !status.Available {
		kind = statusError
		if status.Optional {
			kind = statusWarn
		}
		message = status.Detail
	}
	return renderStatusLine(status.Name, kind, message, colorize)
}
