package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// AdminUserRepository is the interface that wraps methods for Users table data access used by the admin console
type AdminUserRepository interface {
	// Method GetAll retrieves a paginated list of users with optional role and search filters.
	//
	// "page" parameter is used for pagination (default: 1).
	// "count" parameter is used for page size.
	// "role" parameter is optional filter by role; empty means any role.
	// "search" parameter is optional search in email or username.
	//
	// If some error occurs, the error will be returned together with "nil" value.
	GetAll(ctx context.Context, page, count int, role models.Role, search string) ([]models.UserListItem, error)
	// Method Count returns the number of users matching the filters.
	//
	// Please reference GetAll method for parameter values.
	Count(ctx context.Context, role models.Role, search string) (int, error)
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, a "user not found" error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method UpdateRole sets the role of a user.
	UpdateRole(ctx context.Context, id int, role models.Role) error
	// Method Delete deletes a user. Posts, comments, reactions, badges and tokens go with it.
	Delete(ctx context.Context, id int) error
}

// AdminPostRepository is the interface that wraps methods for BlogPost table data access used by the admin console
type AdminPostRepository interface {
	List(ctx context.Context, filter models.PostFilter) ([]models.PostListItem, error)
	Count(ctx context.Context, filter models.PostFilter) (int, error)
	GetByID(ctx context.Context, id int) (*models.Post, error)
	UpdateStatus(ctx context.Context, id int, status models.PostStatus) error
	// Method ImagesByUser returns the featured images of a user's posts, for clean-up after deletion.
	ImagesByUser(ctx context.Context, userID int) ([]string, error)
}

// PostDeleter deletes a post with its dependants
type PostDeleter interface {
	Delete(ctx context.Context, viewer models.Viewer, id int) error
}

// CommentModerator lists and deletes comments of all posts
type CommentModerator interface {
	ListAll(ctx context.Context, page int, search string) (*models.CommentList, error)
	Delete(ctx context.Context, viewer models.Viewer, id int) error
}

// CategoryManager manages categories
type CategoryManager interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id int) (*models.Category, error)
	Create(ctx context.Context, req *models.CategoryRequest) (*models.Category, error)
	Update(ctx context.Context, id int, req *models.CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, id int) error
}

type adminService struct {
	userRepo   AdminUserRepository
	postRepo   AdminPostRepository
	posts      PostDeleter
	comments   CommentModerator
	categories CategoryManager
	images     ImageStore
	logger     *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(
	userRepo AdminUserRepository,
	postRepo AdminPostRepository,
	posts PostDeleter,
	comments CommentModerator,
	categories CategoryManager,
	images ImageStore,
	logger *zap.Logger,
) *adminService {
	return &adminService{
		userRepo:   userRepo,
		postRepo:   postRepo,
		posts:      posts,
		comments:   comments,
		categories: categories,
		images:     images,
		logger:     logger,
	}
}

// ListUsers returns a page of users filtered by role and search term
func (s *adminService) ListUsers(ctx context.Context, page int, role models.Role, search string) (*models.UserList, error) {
	if role != "" && !role.IsValid() {
		role = ""
	}
	search = strings.TrimSpace(search)

	total, err := s.userRepo.Count(ctx, role, search)
	if err != nil {
		s.logger.Error("failed to count users", zap.Error(err))
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	pagination := models.NewPagination(page, models.AdminPageSize, total)

	users := []models.UserListItem{}
	if total > 0 {
		if users, err = s.userRepo.GetAll(ctx, pagination.Page, models.AdminPageSize, role, search); err != nil {
			s.logger.Error("failed to list users", zap.Error(err))
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
	}

	return &models.UserList{Users: users, Pagination: pagination}, nil
}

// ToggleUserRole switches a user between "user" and "admin". Admins cannot change their own role.
func (s *adminService) ToggleUserRole(ctx context.Context, viewer models.Viewer, userID int) (models.Role, error) {
	if !viewer.IsAdmin() {
		return "", models.ErrForbidden
	}
	if viewer.UserID == userID {
		return "", models.NewValidationError("You cannot change your own role")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	role := models.RoleAdmin
	if user.Role == models.RoleAdmin {
		role = models.RoleUser
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return "", fmt.Errorf("failed to update role: %w", err)
	}

	s.logger.Info("user role changed",
		zap.Int("user_id", userID),
		zap.String("role", string(role)),
		zap.Int("by_user_id", viewer.UserID),
	)
	return role, nil
}

// DeleteUser deletes an account with everything it owns. Admins cannot delete themselves.
//
// Uploaded files are removed after the rows, on a best-effort basis.
func (s *adminService) DeleteUser(ctx context.Context, viewer models.Viewer, userID int) error {
	if !viewer.IsAdmin() {
		return models.ErrForbidden
	}
	if viewer.UserID == userID {
		return models.NewValidationError("You cannot delete your own account")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	images, err := s.postRepo.ImagesByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get post images: %w", err)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.images.DeleteImage(ctx, user.ProfileImage, models.MediaTypeAvatar)
	for _, image := range images {
		s.images.DeleteImage(ctx, image, models.MediaTypePost)
	}

	s.logger.Info("user deleted", zap.Int("user_id", userID), zap.Int("by_user_id", viewer.UserID))
	return nil
}

// ListPosts returns a page of posts of any status
func (s *adminService) ListPosts(ctx context.Context, filter models.PostFilter) (*models.PostList, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		filter.Status = ""
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Count = models.AdminPageSize

	total, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	pagination := models.NewPagination(filter.Page, filter.Count, total)
	filter.Page = pagination.Page

	posts := []models.PostListItem{}
	if total > 0 {
		if posts, err = s.postRepo.List(ctx, filter); err != nil {
			return nil, fmt.Errorf("failed to list posts: %w", err)
		}
	}

	return &models.PostList{Posts: posts, Pagination: pagination}, nil
}

// TogglePostStatus switches a post between draft and published
func (s *adminService) TogglePostStatus(ctx context.Context, viewer models.Viewer, postID int) (models.PostStatus, error) {
	if !viewer.IsAdmin() {
		return "", models.ErrForbidden
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}

	status := post.Status.Toggle()
	if err := s.postRepo.UpdateStatus(ctx, postID, status); err != nil {
		return "", fmt.Errorf("failed to update post status: %w", err)
	}
	return status, nil
}

// DeletePost deletes any post
func (s *adminService) DeletePost(ctx context.Context, viewer models.Viewer, postID int) error {
	if !viewer.IsAdmin() {
		return models.ErrForbidden
	}
	return s.posts.Delete(ctx, viewer, postID)
}

// ListComments returns a page of comments of all posts
func (s *adminService) ListComments(ctx context.Context, page int, search string) (*models.CommentList, error) {
	return s.comments.ListAll(ctx, page, search)
}

// DeleteComment deletes any comment
func (s *adminService) DeleteComment(ctx context.Context, viewer models.Viewer, commentID int) error {
	if !viewer.IsAdmin() {
		return models.ErrForbidden
	}
	return s.comments.Delete(ctx, viewer, commentID)
}

// ListCategories returns every category with its post count
func (s *adminService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// GetCategory returns a category for its edit form
func (s *adminService) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	return s.categories.Get(ctx, id)
}

// CreateCategory adds a category
func (s *adminService) CreateCategory(ctx context.Context, viewer models.Viewer, req *models.CategoryRequest) (*models.Category, error) {
	if !viewer.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.categories.Create(ctx, req)
}

// UpdateCategory edits a category
func (s *adminService) UpdateCategory(ctx context.Context, viewer models.Viewer, id int, req *models.CategoryRequest) (*models.Category, error) {
	if !viewer.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.categories.Update(ctx, id, req)
}

// DeleteCategory deletes a category that no post uses
func (s *adminService) DeleteCategory(ctx context.Context, viewer models.Viewer, id int) error {
	if !viewer.IsAdmin() {
		return models.ErrForbidden
	}
	return s.categories.Delete(ctx, id)
}
