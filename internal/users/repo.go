package users

import (
	"context"
	"time"
)

type Repo interface {
	// Create inserts a new user; ErrConflict when the username is taken.
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (User, error)
	UpdateProfile(ctx context.Context, userID, email, fullName string, updatedAt time.Time) error
}
