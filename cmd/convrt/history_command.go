package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"convrt/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		workflow string
		status   string
		limit    int
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := store.List(cmd.Context(), history.Filter{
				Workflow: strings.TrimSpace(workflow),
				Status:   history.Status(strings.TrimSpace(status)),
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(runs, time.Now()))
			return nil
		},
	}
	historyCmd.Flags().StringVar(&workflow, "workflow", "", "Only show runs of this workflow (acquire, transcribe, trim, encode)")
	historyCmd.Flags().StringVar(&status, "status", "", "Only show runs with this status")
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run, including its transcript or error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			run, err := findRun(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, run)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Workflow:  %s\n", run.Workflow)
			fmt.Fprintf(out, "Status:    %s\n", run.Status)
			fmt.Fprintf(out, "Input:     %s\n", run.Input)
			fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format(time.DateTime))
			if d := run.Duration(); d > 0 {
				fmt.Fprintf(out, "Duration:  %s\n", d.Round(time.Millisecond))
			}
			if run.Output != "" {
				fmt.Fprintf(out, "Output:    %s\n", run.Output)
			}
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:     %s (%s)\n", run.ErrorMessage, run.ErrorKind)
			}
			if run.Transcript != "" {
				fmt.Fprintf(out, "Language:  %s\n\n%s\n", run.DetectedLanguage, run.Transcript)
			}
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			_, _, store, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}

func renderHistoryTable(runs []history.Run, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		detail := run.Output
		if run.ErrorKind != "" {
			detail = run.ErrorKind
		}
		duration := "-"
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Workflow,
			string(run.Status),
			humanize.RelTime(run.StartedAt, now, "ago", "from now"),
			duration,
			detail,
		})
	}
	return renderTable(
		[]string{"Run", "Workflow", "Status", "Started", "Duration", "Output / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// findRun resolves a full run ID or a unique prefix of one, as printed by
// the history table.
func findRun(ctx context.Context, store *history.Store, id string) (*history.Run, error) {
	run, err := store.Get(ctx, id)
	if err == nil || !errors.Is(err, history.ErrNotFound) {
		return run, err
	}
	runs, err := store.List(ctx, history.Filter{Limit: 1000})
	if err != nil {
		return nil, err
	}
	var match *history.Run
	for i := range runs {
		if !strings.HasPrefix(runs[i].ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
		}
		match = &runs[i]
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
