package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/lalith-99/territorydesk/internal/auth"
	"github.com/lalith-99/territorydesk/internal/config"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Long: `Mint a bearer token signed with JWT_SECRET.

The default role is service_role, which is what external schedulers need to
call /functions/v1/* endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if role != auth.RoleService && role != auth.RoleAdmin {
				return fmt.Errorf("unknown role %q", role)
			}
			signed, err := auth.GenerateToken(subject, role, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "scheduler", "token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleService, "role claim (service_role or admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 365*24*time.Hour, "token lifetime")
	return cmd
}
