package models

// Validation limits and page sizes
const (
	MinTitleLength   = 5
	MaxTitleLength   = 255
	MinContentLength = 50
	MaxContentLength = 65535
	MaxSummaryLength = 500

	MinCommentLength = 3
	MaxCommentLength = 1000

	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxEmailLength    = 100
	MaxBioLength      = 500

	MinCategoryNameLength = 2
	MaxCategoryNameLength = 50
	MaxCategoryDescLength = 500

	PostsPerPage     = 9
	AdminPageSize    = 20
	CommentsPageSize = 10

	FirstPostThreshold = 1
	ProlificThreshold  = 10
)
