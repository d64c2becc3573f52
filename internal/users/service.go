package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

const (
	minPasswordBytes = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Sign(userID, username string) (string, time.Time, error)
}

// AccessToken is the bearer credential returned by Login.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn int64
}

type Service struct {
	Repo       Repo
	Tokens     TokenIssuer
	BcryptCost int
	Now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(repo Repo, tokens TokenIssuer, bcryptCost int) *Service {
	return &Service{Repo: repo, Tokens: tokens, BcryptCost: bcryptCost, Now: time.Now}
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if !usernamePattern.MatchString(username) {
		return User{}, fmt.Errorf("%w: username must be 3-50 characters of letters, digits, '_' or '-'", ErrInvalidInput)
	}
	if len(password) < minPasswordBytes || len(password) > maxPasswordBytes {
		return User{}, fmt.Errorf("%w: password must be %d-%d bytes", ErrInvalidInput, minPasswordBytes, maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		AuthProvider: ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login checks credentials and issues a token. Unknown usernames and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (AccessToken, error) {
	if s == nil || s.Repo == nil || s.Tokens == nil {
		return AccessToken{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return AccessToken{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	user, err := s.Repo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return AccessToken{}, err
	}
	if err != nil || user.PasswordHash == "" {
		// Burn the same bcrypt cost so response timing does not reveal the account.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return AccessToken{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AccessToken{}, ErrInvalidCredentials
	}
	return s.IssueToken(user)
}

// IssueToken signs a token for an already authenticated user.
func (s *Service) IssueToken(user User) (AccessToken, error) {
	token, exp, err := s.Tokens.Sign(user.ID, user.Username)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	expiresIn := int64(exp.Sub(s.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return AccessToken{Token: token, ExpiresAt: exp, ExpiresIn: expiresIn}, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

// UpsertExternal maps a federated identity onto a local user, creating one
// on first sign-in and refreshing profile fields afterwards.
func (s *Service) UpsertExternal(ctx context.Context, ident ExternalIdentity) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(ident.Provider) == "" || strings.TrimSpace(ident.Subject) == "" {
		return User{}, fmt.Errorf("%w: provider and subject are required", ErrInvalidInput)
	}

	now := s.now()
	existing, err := s.Repo.GetByExternalID(ctx, ident.Provider, ident.Subject)
	switch {
	case err == nil:
		if err := s.Repo.UpdateProfile(ctx, existing.ID, ident.Email, ident.Name, now); err != nil {
			return User{}, err
		}
		existing.Email = ident.Email
		existing.FullName = ident.Name
		existing.UpdatedAt = now
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     externalUsername(ident.Provider, ident.Subject),
		Email:        ident.Email,
		FullName:     ident.Name,
		AuthProvider: ident.Provider,
		ExternalID:   ident.Subject,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func externalUsername(provider, subject string) string {
	name := provider + "_" + subject
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
	if len(clean) > 50 {
		clean = clean[:50]
	}
	return clean
}

func (s *Service) cost() int {
	if s.BcryptCost < bcrypt.MinCost || s.BcryptCost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("dochub-dummy-password"), s.cost())
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC().Truncate(time.Microsecond)
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}
