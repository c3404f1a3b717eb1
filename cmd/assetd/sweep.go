package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EgorLis/my-assets/internal/app"
	"github.com/EgorLis/my-assets/internal/config"
)

var sweepMaxAge string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove abandoned chunks and merge leftovers once, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return err
		}
		if sweepMaxAge != "" {
			d, err := parseAge(sweepMaxAge)
			if err != nil {
				return err
			}
			cfg.ChunkMaxAge = d
		}
		n, err := app.SweepOnce(cmd.Context(), cfg, app.NewBaseLogger(os.Stderr))
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d files older than %s\n", n, cfg.ChunkMaxAge)
		return err
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepMaxAge, "max-age", "", "override CHUNK_MAX_AGE (e.g. 6h)")
}
