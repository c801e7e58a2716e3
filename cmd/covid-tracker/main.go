// Command covid-tracker loads the OWID COVID-19 dataset, cleans it, plots the
// tracked countries, and prints a short report.
//
// Usage:
//
//	covid-tracker            run the pipeline (configured via environment)
//	covid-tracker validate   check the input file without rendering anything
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/covid-data-tracker/internal/config"
	"github.com/couchcryptid/covid-data-tracker/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("covid-tracker failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "covid-tracker",
		Short:         "Plot COVID-19 cases, deaths, and vaccinations for tracked countries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), observability.NewMetrics())
		},
	}
	root.AddCommand(newValidateCmd())
	return root
}
