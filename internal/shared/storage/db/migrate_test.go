package db

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dochub/internal/shared/telemetry"
)

func TestRunMigrationsSQLite(t *testing.T) {
	ctx := context.Background()
	database, err := Connect(ctx, "sqlite::memory:", DefaultMigrateOptions())
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(ctx, database))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(ctx, database))

	var tables []string
	require.NoError(t, database.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'documents') ORDER BY name`))
	require.Equal(t, []string{"documents", "users"}, tables)
}

func TestRunMigrationsNilIsNoop(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), nil))
}

func TestRunMigrationsLogsThroughTelemetry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := telemetry.Logger()
	telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(prev) })

	ctx := context.Background()
	database, err := Connect(ctx, "sqlite::memory:", DefaultMigrateOptions())
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, RunMigrations(ctx, database))

	applied := false
	for _, entry := range logs.All() {
		if entry.LoggerName == "goose" && strings.Contains(entry.Message, "00001_init.sql") {
			applied = true
		}
	}
	require.True(t, applied, "expected goose to report 00001_init.sql through zap")
}

func TestSQLiteLowerFoldsUnicode(t *testing.T) {
	ctx := context.Background()
	database, err := Connect(ctx, "sqlite::memory:", DefaultMigrateOptions())
	require.NoError(t, err)
	defer database.Close()

	require.Equal(t, "dochub_lower", LowerFunc(database))

	var got string
	require.NoError(t, database.GetContext(ctx, &got, `SELECT `+LowerFunc(database)+`('ÉCOLE Straße')`))
	require.Equal(t, "école straße", got)
}

func TestPostgresSearchIndexesTolerateMissingTrigram(t *testing.T) {
	raw, err := migrationFiles.ReadFile("migrations/postgres/00002_documents_search.sql")
	require.NoError(t, err)
	up := strings.SplitN(string(raw), "-- +goose Down", 2)[0]

	require.Contains(t, up, "-- +goose StatementBegin")
	require.Contains(t, up, "EXCEPTION WHEN insufficient_privilege")
	require.Contains(t, up, "IF EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'pg_trgm')")
	// The extension is only created inside the guarded block.
	require.Equal(t, 1, strings.Count(up, "CREATE EXTENSION"))
	require.Less(t, strings.Index(up, "DO $$"), strings.Index(up, "CREATE EXTENSION"))
}
