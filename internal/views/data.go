package views

import "github.com/bloghut/backend/internal/models"

// PostListData is the model of the home, category and search listings
type PostListData struct {
	Heading    string
	Posts      *models.PostList
	Categories []models.Category
	Category   *models.Category
	// Category chosen in the filter form, 0 for all
	SelectedCategoryID int
	Search             string
}

// PostForm holds the submitted values of the post editor
type PostForm struct {
	Title      string
	Content    string
	Summary    string
	CategoryID int
	Status     string
}

// PostFormData is the model of the create and edit post pages
type PostFormData struct {
	Post       *models.Post
	Form       PostForm
	Categories []models.Category
}

// PostViewData is the model of the single post page
type PostViewData struct {
	Page             *models.PostPage
	CommentsPageSize int
	MinComment       int
	MaxComment       int
}

// AuthForm holds the submitted values of the register and login forms.
// Passwords are never echoed back.
type AuthForm struct {
	Username   string
	Email      string
	Login      string
	RememberMe bool
	Next       string
}

// ResetForm is the model of the reset password page
type ResetForm struct {
	Token string
	Valid bool
}

// ProfileForm holds the submitted values of the profile editor
type ProfileForm struct {
	Username string
	Email    string
	Bio      string
}

// ProfileEditData is the model of the profile edit page
type ProfileEditData struct {
	User *models.User
	Form ProfileForm
}

// AdminUsersData is the model of the admin user console
type AdminUsersData struct {
	Users  *models.UserList
	Role   string
	Search string
}

// AdminPostsData is the model of the admin post console
type AdminPostsData struct {
	Posts      *models.PostList
	Categories []models.Category
	Status     string
	CategoryID int
	Search     string
}

// AdminCommentsData is the model of the admin comment console
type AdminCommentsData struct {
	Comments *models.CommentList
	Search   string
}

// CategoryFormData is the model of the admin category editor
type CategoryFormData struct {
	Category *models.Category
	Form     models.CategoryRequest
}

// ErrorData is the model of the error page
type ErrorData struct {
	Status  int
	Message string
}
