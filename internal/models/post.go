package models

import "time"

// PostStatus represents the publication state of a post
type PostStatus string

// PostStatus constants
const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// IsValid reports whether s is a known status
func (s PostStatus) IsValid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Toggle returns the opposite status
func (s PostStatus) Toggle() PostStatus {
	if s == PostStatusPublished {
		return PostStatusDraft
	}
	return PostStatusPublished
}

// Post represents a blog post with its author and category joined in
type Post struct {
	ID            int        `json:"id"`
	UserID        int        `json:"user_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Summary       string     `json:"summary"`
	CategoryID    *int       `json:"category_id"`
	FeaturedImage string     `json:"featured_image"`
	Status        PostStatus `json:"status"`
	Views         int        `json:"views"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	AuthorUsername string `json:"author_username"`
	AuthorImage    string `json:"author_image"`
	CategoryName   string `json:"category_name"`
	CategorySlug   string `json:"category_slug"`
}

// PostListItem represents a post card in listings
type PostListItem struct {
	ID             int        `json:"id"`
	UserID         int        `json:"user_id"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	FeaturedImage  string     `json:"featured_image"`
	Status         PostStatus `json:"status"`
	Views          int        `json:"views"`
	CreatedAt      time.Time  `json:"created_at"`
	AuthorUsername string     `json:"author_username"`
	CategoryName   string     `json:"category_name"`
	CategorySlug   string     `json:"category_slug"`
	CommentCount   int        `json:"comment_count"`
	Likes          int        `json:"likes"`
}

// PostFilter narrows a post listing. Zero values mean "no filter".
type PostFilter struct {
	Status     PostStatus
	CategoryID int
	UserID     int
	Search     string
	Page       int
	Count      int
}

// PostRequest represents the create/edit post form
type PostRequest struct {
	Title       string
	Content     string
	Summary     string
	CategoryID  *int
	Status      PostStatus
	Image       *Upload
	RemoveImage bool
}

// PostPage is the model of the single post page
type PostPage struct {
	Post          *Post
	Comments      []Comment
	TotalComments int
	Reactions     ReactionState
	CanManage     bool
}
