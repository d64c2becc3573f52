package users

import "time"

// UserResponse is the outward-facing representation of a user.
type UserResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"fullName,omitempty"`
	AuthProvider string    `json:"authProvider"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TokenResponse follows the OAuth2 token response field names.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func toResponse(user User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		AuthProvider: user.AuthProvider,
		CreatedAt:    user.CreatedAt,
	}
}

func toTokenResponse(token AccessToken) TokenResponse {
	return TokenResponse{
		AccessToken: token.Token,
		TokenType:   "bearer",
		ExpiresIn:   token.ExpiresIn,
	}
}
