package main

import (
	"context"
	"fmt"

	"go-inventory-pos/internal/app"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install default permissions, roles and the first administrator",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.SeedDefaults(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Seed complete")
			return nil
		})
	},
}

var sweepSessionsCmd = &cobra.Command{
	Use:   "sweep-sessions",
	Short: "Close every session past its inactivity window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Sessions.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %d expired session(s)\n", n)
			return nil
		})
	},
}

var scanStockCmd = &cobra.Command{
	Use:   "scan-low-stock",
	Short: "Mail administrators the products below their minimum",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Alerts.ScanLowStock(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d product(s) below minimum\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, sweepSessionsCmd, scanStockCmd)
}
