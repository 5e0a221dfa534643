package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deactivate expired and idle links",
	Long:  "sweep retires links in two passes: links whose expiration date has passed, then links not used within the LINK_INACTIVE_DAYS window.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := newToolbox()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		now := time.Now().UTC()
		expired, err := tb.links.SweepExpired(ctx, now)
		if err != nil {
			return err
		}
		stale, err := tb.links.SweepStale(ctx, now.Add(-tb.cfg.InactiveWindow()))
		if err != nil {
			return err
		}

		fmt.Printf("expired links deactivated: %d\n", expired)
		fmt.Printf("stale links deactivated:   %d\n", stale)
		return nil
	},
}
