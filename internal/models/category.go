package models

import "time"

// Category represents a post category
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	PostCount   int       `json:"post_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryRequest represents the create/edit category form
type CategoryRequest struct {
	Name        string
	Description string
}
