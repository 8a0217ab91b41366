package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"convrt/internal/language"
	"convrt/internal/pipeline"
	"convrt/internal/services"
)

// errReported marks a failure that has already been printed.
var errReported = errors.New("failure already reported")

// finish prints a workflow outcome and converts failures into errReported.
// JSON mode always prints the Outcome object on stdout; text mode prints the
// result line on stdout and failures on stderr.
func (c *commandContext) finish(cmd *cobra.Command, outcome pipeline.Outcome, err error) error {
	if c.jsonOutput() {
		if werr := writeJSON(cmd, outcome); werr != nil {
			return werr
		}
		if err != nil {
			return errReported
		}
		return nil
	}
	if err != nil {
		printFailure(cmd, err)
		return errReported
	}
	out := cmd.OutOrStdout()
	switch {
	case outcome.Text != "":
		fmt.Fprintln(out, outcome.Text)
		if outcome.DetectedLanguage != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Detected language: %s (%s)\n", language.DisplayName(outcome.DetectedLanguage), outcome.DetectedLanguage)
		}
	case outcome.Output != "":
		fmt.Fprintln(out, outcome.Output)
	}
	return nil
}

func printFailure(cmd *cobra.Command, err error) {
	w := cmd.ErrOrStderr()
	colorize := shouldColorize(w)
	kind, ok := services.KindOf(err)
	fmt.Fprintln(w, renderStatusLine("Error", statusError, services.Headline(err), colorize))
	if ok {
		fmt.Fprintln(w, renderStatusLine("Hint", statusInfo, services.Hint(kind), colorize))
	}
	if detail := strings.TrimSpace(services.Detail(err)); detail != "" {
		fmt.Fprintln(w, statusIndent+"Tool output:")
		for _, line := range strings.Split(detail, "\n") {
			fmt.Fprintln(w, statusIndent+statusIndent+line)
		}
	}
}
