package models

import "time"

// RememberToken is a persisted remember-me token. Only the SHA-256 hash is stored.
type RememberToken struct {
	ID        int
	UserID    int
	TokenHash string
	ExpiresAt time.Time
}

// PasswordReset is a persisted password reset token. Only the SHA-256 hash is stored.
type PasswordReset struct {
	ID        int
	UserID    int
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// PasswordResetTTL is how long a reset link stays valid
const PasswordResetTTL = time.Hour
