package main

import (
	"encoding/json"
	"fmt"

	"github.com/lalith-99/territorydesk/internal/app"
	"github.com/lalith-99/territorydesk/internal/reconcile"
	"github.com/lalith-99/territorydesk/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run reconciliation jobs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List job names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			r := reconcile.NewRunner(reconcile.Jobs(repository.Store{}, reconcile.DefaultGraceDays), zap.NewNop())
			for _, name := range r.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}

	var graceDays int
	run := &cobra.Command{
		Use:   "run <job>",
		Short: "Run one job now and print its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			deps, err := app.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			runner := reconcile.NewRunner(
				reconcile.Jobs(deps.Store, graceDays),
				logger,
				reconcile.WithLocker(deps.Locker),
				reconcile.WithTimeout(cfg.JobTimeout),
			)
			report, err := runner.Run(ctx, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	run.Flags().IntVar(&graceDays, "grace-days", reconcile.DefaultGraceDays,
		"days past expiration before "+reconcile.AutoReturnJob+" returns an assignment")

	cmd.AddCommand(list, run)
	return cmd
}
