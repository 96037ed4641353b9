package models

// ReactionType represents a like or dislike
type ReactionType string

// ReactionType constants
const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// IsValid reports whether t is a known reaction type
func (t ReactionType) IsValid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Reaction represents a user's reaction on a post
type Reaction struct {
	UserID int          `json:"user_id"`
	BlogID int          `json:"blog_id"`
	Type   ReactionType `json:"type"`
}

// ReactionCounts holds the aggregate counts of a post
type ReactionCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// ReactionState is the counts plus the viewer's own reaction (nil when none)
type ReactionState struct {
	ReactionCounts
	UserReaction *ReactionType `json:"user_reaction"`
}

// SetReactionRequest represents the body of POST /api/reactions
type SetReactionRequest struct {
	BlogID int          `json:"blog_id"`
	Type   ReactionType `json:"type"`
}
