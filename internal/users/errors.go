package users

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrConflict           = errors.New("username already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
