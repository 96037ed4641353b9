package models

import "time"

// Comment represents a comment with denormalized author info
type Comment struct {
	ID              int       `json:"id"`
	BlogID          int       `json:"blog_id"`
	UserID          int       `json:"user_id"`
	ParentCommentID *int      `json:"parent_comment_id"`
	Comment         string    `json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
	Username        string    `json:"username"`
	ProfileImage    string    `json:"profile_image"`
}

// CommentListItem represents a comment row in the admin console
type CommentListItem struct {
	ID        int       `json:"id"`
	BlogID    int       `json:"blog_id"`
	PostTitle string    `json:"post_title"`
	Username  string    `json:"username"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// AddCommentRequest represents the body of POST /api/comments
type AddCommentRequest struct {
	BlogID          int    `json:"blog_id"`
	Comment         string `json:"comment"`
	ParentCommentID *int   `json:"parent_comment_id,omitempty"`
}

// CommentPage is a slice of a post's comments
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"has_more"`
}
