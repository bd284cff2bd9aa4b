package main

import (
	"fmt"

	"github.com/lalith-99/territorydesk/internal/config"
	"github.com/lalith-99/territorydesk/internal/observ"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "territoryctl",
		Short:         "Maintenance CLI for territorydesk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newJobsCmd(), newTokenCmd())
	return root
}

// setup loads config and a logger the way the server does.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
