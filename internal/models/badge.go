package models

import "time"

// Badge catalog names, seeded by migration
const (
	BadgeNewcomer       = "Newcomer"
	BadgeFirstPost      = "First Post"
	BadgeProlificWriter = "Prolific Writer"
)

// Badge represents an entry of the badge catalog
type Badge struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// UserBadge represents a badge earned by a user
type UserBadge struct {
	Badge
	EarnedAt time.Time `json:"earned_at"`
}
