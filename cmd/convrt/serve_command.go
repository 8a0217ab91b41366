package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"convrt/internal/bridge"
	"convrt/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the workflows over the local HTTP bridge",
		Long: "Serves the model, workflow, and history endpoints under /api and streams\n" +
			"pipeline events over a websocket at /api/events. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, bus, store, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			cache, err := ctx.modelCache(cmd)
			if err != nil {
				return err
			}
			coordinator, err := ctx.coordinator(cmd)
			if err != nil {
				return err
			}
			served := *cfg
			if bind != "" {
				served.Paths.APIBind = bind
			}
			srv, err := bridge.NewFromConfig(&served, coordinator, cache, store, bus, logger)
			if err != nil {
				return err
			}
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Bridge listening on http://%s\n", srv.Addr())
			<-cmd.Context().Done()
			logger.Info("bridge stopping", logging.String(logging.FieldEventType, "bridge_stopping"))
			srv.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default paths.api_bind)")
	return cmd
}
