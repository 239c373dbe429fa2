package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/persistence"
)

var downSteps int

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL schema migrations.`,
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for i := 0; i < downSteps; i++ {
				if err := runMigration(cmd.Context(), persistence.MigrateDown); err != nil {
					return err
				}
			}
			return nil
		},
	}
	down.Flags().IntVarP(&downSteps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigration(cmd.Context(), persistence.MigrateUp)
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigration(cmd.Context(), persistence.MigrateStatus)
			},
		},
	)
	return cmd
}

func runMigration(ctx context.Context, command persistence.MigrationCommand) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required for migrations")
	}

	logger, err := observability.NewLogger(cfg.Logger, observability.ServiceFields(cfg.App)...)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx = contextOrBackground(ctx)
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	return persistence.Migrate(ctx, pg.PoolHandle(), command, logger)
}
