package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"dochub/internal/shared/storage/db"
)

// SQLRepo persists users in Postgres or SQLite. Queries use ? placeholders
// and are rebound for the connected driver.
type SQLRepo struct {
	DB *sqlx.DB
}

const selectUser = `
SELECT id, username, password_hash, COALESCE(email, '') AS email, COALESCE(full_name, '') AS full_name,
       auth_provider, COALESCE(external_id, '') AS external_id, created_at, updated_at
FROM users`

func (r *SQLRepo) Create(ctx context.Context, user User) error {
	query := r.DB.Rebind(`
INSERT INTO users (id, username, password_hash, email, full_name, auth_provider, external_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		nullableString(user.Email),
		nullableString(user.FullName),
		user.AuthProvider,
		nullableString(user.ExternalID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, userID)
}

func (r *SQLRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE username = ?`, username)
}

func (r *SQLRepo) GetByExternalID(ctx context.Context, provider, externalID string) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE auth_provider = ? AND external_id = ?`, provider, externalID)
}

func (r *SQLRepo) UpdateProfile(ctx context.Context, userID, email, fullName string, updatedAt time.Time) error {
	query := r.DB.Rebind(`UPDATE users SET email = ?, full_name = ?, updated_at = ? WHERE id = ?`)
	res, err := r.DB.ExecContext(ctx, query, nullableString(email), nullableString(fullName), updatedAt, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) getOne(ctx context.Context, query string, args ...any) (User, error) {
	var user User
	err := r.DB.GetContext(ctx, &user, r.DB.Rebind(query+` LIMIT 1`), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
