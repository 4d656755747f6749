package service

import (
	"errors"
	"strings"
)

var (
	ErrEmptyContent        = errors.New("content is empty")
	ErrGuestProjectLimit   = errors.New("guest project limit reached, sign in to create more projects")
	ErrNothingToShare      = errors.New("project has no content to share")
	ErrMigrationInProgress = errors.New("migration already in progress")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrGoogleDisabled      = errors.New("google sign-in is not configured")
	ErrEmptyNote           = errors.New("note text is empty")
)

// MigrationFailedMessage is shown to the user when guest data could not be
// moved into the account.
const MigrationFailedMessage = "Failed to migrate your projects. Please try again."

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
