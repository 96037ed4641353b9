package models

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested row does not exist or is not visible to the viewer
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the viewer may not act on a resource
	ErrForbidden = errors.New("permission denied")
	// ErrDuplicate is returned when a unique constraint rejects an insert or update
	ErrDuplicate = errors.New("already exists")
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for both unknown users and wrong passwords
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCategoryHasPosts is returned when a category is still referenced by posts
	ErrCategoryHasPosts = errors.New("category has posts")
)

// ValidationError carries the list of messages shown inline on a form
type ValidationError struct {
	Messages []string
}

// NewValidationError creates a validation error with the given messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any validation error
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add appends a message
func (e *ValidationError) Add(message string) {
	e.Messages = append(e.Messages, message)
}

// HasErrors reports whether any message was collected
func (e *ValidationError) HasErrors() bool {
	return len(e.Messages) > 0
}

// ValidationMessages returns the messages of a validation error, or nil for other errors
func ValidationMessages(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Messages
	}
	return nil
}
