package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"convrt/internal/modelcache"
	"convrt/internal/pipeline"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage cached acoustic models",
	}
	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsEnsureCommand(ctx))
	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known and downloaded models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.modelCache(cmd)
			if err != nil {
				return err
			}
			models, err := cache.List()
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, models)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderModelTable(models))
			fmt.Fprintf(cmd.OutOrStdout(), "Cache: %s\n", cache.Dir())
			return nil
		},
	}
}

func newModelsEnsureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure <name>...",
		Short: "Download models that are not cached yet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.modelCache(cmd)
			if err != nil {
				return err
			}
			resolved := make([]modelcache.Descriptor, 0, len(args))
			for _, name := range args {
				if _, err := cache.Resolve(cmd.Context(), name); err != nil {
					return ctx.finish(cmd, pipeline.Report(err), err)
				}
				desc, err := cache.Describe(name)
				if err != nil {
					return err
				}
				resolved = append(resolved, desc)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resolved)
			}
			for _, desc := range resolved {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", desc.Name, humanize.Bytes(uint64(desc.SizeBytes)), desc.LocalPath)
			}
			return nil
		},
	}
}

func renderModelTable(models []modelcache.Descriptor) string {
	rows := make([][]string, 0, len(models))
	for _, model := range models {
		label, size := "", "-"
		if model.Catalog != nil {
			label = model.Catalog.Label
			size = model.Catalog.SizeLabel
		}
		if model.Present {
			size = humanize.Bytes(uint64(model.SizeBytes))
		}
		rows = append(rows, []string{model.Name, label, yesNo(model.Present), size})
	}
	return renderTable([]string{"Name", "Model", "Cached", "Size"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}
