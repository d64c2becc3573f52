package main

// Run database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate down
//   go run ./cmd/migrate status

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"dochub/internal/shared/config"
	"dochub/internal/shared/storage/db"
	"dochub/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or inspect database migrations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "overrides DATABASE_URL")

	withDB := func(fn func(ctx context.Context, database *sqlx.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			telemetry.Init(telemetry.Options{Level: cfg.LogLevel})
			defer telemetry.Sync()

			url := strings.TrimSpace(databaseURL)
			if url == "" {
				url = cfg.DatabaseURL
			}
			if url == "" {
				return fmt.Errorf("DATABASE_URL or --database-url is required")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
			database, err := db.Connect(ctx, url, opts)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.Close()
			return fn(ctx, database)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withDB(func(ctx context.Context, database *sqlx.DB) error {
				if err := db.RunMigrations(ctx, database); err != nil {
					return err
				}
				telemetry.Info("migrate.up.complete", nil)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE:  withDB(db.RollbackMigration),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE:  withDB(db.MigrationStatus),
		},
	)
	return root
}
