package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bloghut/backend/internal/models"
)

// Transactor runs fn inside a database transaction carried by the context
type Transactor interface {
	// Method WithTx begins a transaction, stores it in the context passed to "fn" and commits when
	// "fn" returns nil. Any error (or panic) rolls the transaction back and is returned to the caller.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// usernameRegex allows letters, digits, dots, dashes and underscores
var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}._\-]+$`)

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// normalizeEmail lowercases and trims an email address
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateUsername appends username problems to verr
func validateUsername(verr *models.ValidationError, username string) {
	switch n := runeLen(username); {
	case n == 0:
		verr.Add("Username is required")
	case n < models.MinUsernameLength || n > models.MaxUsernameLength:
		verr.Add(fmt.Sprintf("Username must be between %d and %d characters", models.MinUsernameLength, models.MaxUsernameLength))
	case !usernameRegex.MatchString(username):
		verr.Add("Username may only contain letters, numbers, dots, dashes and underscores")
	}
}

// validateEmail appends email problems to verr
func validateEmail(verr *models.ValidationError, email string) {
	switch {
	case email == "":
		verr.Add("Email is required")
	case len(email) > models.MaxEmailLength || !emailRegex.MatchString(email):
		verr.Add("Please enter a valid email address")
	}
}

// validateNewPassword appends password problems to verr
func validateNewPassword(verr *models.ValidationError, password, confirm string) {
	if runeLen(password) < models.MinPasswordLength {
		verr.Add(fmt.Sprintf("Password must be at least %d characters", models.MinPasswordLength))
	}
	if password != confirm {
		verr.Add("Passwords do not match")
	}
}
