package models

import "time"

// Role is the access level of a user
type Role string

// Role constants
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user in the system
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	Role         Role      `json:"role"`
	Bio          string    `json:"bio"`
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserListItem represents a user row in the admin console
type UserListItem struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	PostCount int       `json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest represents the registration form
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginRequest represents the login form
type LoginRequest struct {
	Login      string // email or username
	Password   string
	RememberMe bool
}

// UpdateProfileRequest represents the profile edit form.
// Empty NewPassword keeps the current password.
type UpdateProfileRequest struct {
	Username        string
	Email           string
	Bio             string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
	Avatar          *Upload
	RemoveAvatar    bool
}

// Profile is the public profile page model
type Profile struct {
	User       *User
	Badges     []UserBadge
	Posts      []PostListItem
	Pagination Pagination
	Stats      ProfileStats
}

// ProfileStats holds the counters shown on a profile
type ProfileStats struct {
	Posts     int `json:"posts"`
	Comments  int `json:"comments"`
	Reactions int `json:"reactions"`
}
