package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EgorLis/my-assets/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP API and background sweeper",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Build(ctx)
		if err != nil {
			return err
		}
		return a.Run(ctx)
	},
}
