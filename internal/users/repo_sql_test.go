package users

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"dochub/internal/shared/storage/db"
)

func newSQLiteRepo(t *testing.T) *SQLRepo {
	t.Helper()
	ctx := context.Background()
	database, err := db.Connect(ctx, "sqlite::memory:", db.DefaultServerOptions())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(ctx, database))
	return &SQLRepo{DB: database}
}

func TestSQLRepoCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	user := User{
		ID:           "u-1",
		Username:     "alice",
		PasswordHash: "$2a$04$hash",
		AuthProvider: ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, user))

	byID, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.Empty(t, byID.Email)
	require.True(t, byID.CreatedAt.Equal(now))

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u-1", byName.ID)

	_, err = repo.GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, ErrNotFound)

	dup := user
	dup.ID = "u-2"
	require.ErrorIs(t, repo.Create(ctx, dup), ErrConflict)
}

func TestSQLRepoExternalIdentity(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, User{
		ID:           "u-1",
		Username:     "google_123",
		AuthProvider: ProviderGoogle,
		ExternalID:   "123",
		Email:        "a@example.com",
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	got, err := repo.GetByExternalID(ctx, ProviderGoogle, "123")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.ID)

	require.NoError(t, repo.UpdateProfile(ctx, "u-1", "b@example.com", "Alice", now.Add(time.Hour)))
	got, err = repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "b@example.com", got.Email)
	require.Equal(t, "Alice", got.FullName)

	require.ErrorIs(t, repo.UpdateProfile(ctx, "missing", "", "", now), ErrNotFound)
}

func TestSQLRepoCreatePostgresPlaceholders(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &SQLRepo{DB: sqlx.NewDb(mockDB, "pgx")}
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, username, password_hash, email, full_name, auth_provider, external_id, created_at, updated_at)\nVALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)")).
		WithArgs("u-1", "alice", "hash", nil, nil, ProviderPassword, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), User{
		ID:           "u-1",
		Username:     "alice",
		PasswordHash: "hash",
		AuthProvider: ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
