package db

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"dochub/internal/shared/telemetry"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// gooseLogger routes goose progress lines into the process logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	telemetry.Logger().Named("goose").Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	telemetry.Logger().Named("goose").Sugar().Fatalf(strings.TrimSpace(format), v...)
}

func prepareGoose(database *sqlx.DB) (string, error) {
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{})
	switch DialectOf(database) {
	case DialectSQLite:
		if err := goose.SetDialect("sqlite3"); err != nil {
			return "", err
		}
		return "migrations/sqlite", nil
	default:
		if err := goose.SetDialect("postgres"); err != nil {
			return "", err
		}
		return "migrations/postgres", nil
	}
}

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sqlx.DB) error {
	if database == nil {
		return nil
	}
	dir, err := prepareGoose(database)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, database.DB, dir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(ctx context.Context, database *sqlx.DB) error {
	dir, err := prepareGoose(database)
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, database.DB, dir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrationStatus logs applied and pending migrations.
func MigrationStatus(ctx context.Context, database *sqlx.DB) error {
	dir, err := prepareGoose(database)
	if err != nil {
		return err
	}
	return goose.StatusContext(ctx, database.DB, dir)
}
