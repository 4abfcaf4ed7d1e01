package service

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password; callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrInactiveUser  = errors.New("inactive user")
	ErrForbidden     = errors.New("operation not permitted")
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
	ErrBadCredential = errors.New("current password is incorrect")
	ErrUsersExist    = errors.New("users already exist")
	ErrValidation    = errors.New("invalid input")
)
