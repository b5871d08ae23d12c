package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrPasswordRequired   = errors.New("password is required")
	ErrSubjectRequired    = errors.New("subject id is required")
)
