package service

import (
	"errors"

	"github.com/sandeepkv93/support-space-backend/internal/repository"
	"github.com/sandeepkv93/support-space-backend/internal/security"
)

var (
	ErrDuplicateEmail     = repository.ErrDuplicateEmail
	ErrHashing            = security.ErrHashing
	ErrSessionCreation    = errors.New("session creation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = repository.ErrSessionNotFound
	ErrUserNotFound       = repository.ErrUserNotFound

	// Guard messages are part of the HTTP contract and must not change.
	ErrAuthenticationRequired = errors.New("Authentication required")
	ErrAdminAccessRequired    = errors.New("Admin access required")
)

// ValidationError reports bad user input before any storage access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
