package models

import (
	"errors"
	"regexp"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError reports malformed or missing input. Message is safe to
// return to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError returns a *ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// NotFoundError is a resource-specific ErrNotFound.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError returns a *NotFoundError with the given message.
func NewNotFoundError(msg string) error {
	return &NotFoundError{Message: msg}
}

// ConflictError is a resource-specific ErrDuplicateKey.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return ErrDuplicateKey }

// NewConflictError returns a *ConflictError with the given message.
func NewConflictError(msg string) error {
	return &ConflictError{Message: msg}
}

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidID reports whether id is a 24 character hexadecimal document id.
func ValidID(id string) bool {
	return objectIDPattern.MatchString(id)
}
