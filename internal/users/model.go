package users

import "time"

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	AuthProvider string    `db:"auth_provider"`
	ExternalID   string    `db:"external_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ExternalIdentity is a profile asserted by a federated identity provider.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}
