package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/markup"
	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// PostRepository is the interface that wraps methods for BlogPost table data access
type PostRepository interface {
	// Method Create inserts a new post; its ID is set on success.
	//
	// If "CategoryID" references a missing category, a "category not found" error will be returned.
	Create(ctx context.Context, post *models.Post) error
	// Method GetByID retrieves a post joined with its author and category.
	//
	// If post with such ID does not exist, a "post not found" error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Post, error)
	// Method Update overwrites every mutable field of a post. The last writer wins.
	Update(ctx context.Context, post *models.Post) error
	// Method UpdateStatus sets the status of a post.
	UpdateStatus(ctx context.Context, id int, status models.PostStatus) error
	// Method Delete removes a post row.
	//
	// If post with such ID does not exist, a "post not found" error will be returned.
	Delete(ctx context.Context, id int) error
	// Method IncrementViews adds one to the view counter.
	IncrementViews(ctx context.Context, id int) error
	// Method List retrieves a page of posts matching "filter".
	//
	// A search term orders title matches first, then summary matches, then the rest; ties are newest first.
	List(ctx context.Context, filter models.PostFilter) ([]models.PostListItem, error)
	// Method Count returns the number of posts matching "filter". Page and Count are ignored.
	Count(ctx context.Context, filter models.PostFilter) (int, error)
	// Method CountByUser returns the number of posts a user has written, drafts included.
	CountByUser(ctx context.Context, userID int) (int, error)
}

// PostCommentRepository is the part of the comment storage used by the post page and deletion
type PostCommentRepository interface {
	ListByPost(ctx context.Context, postID, offset, limit int) ([]models.Comment, error)
	CountByPost(ctx context.Context, postID int) (int, error)
	DeleteByPost(ctx context.Context, postID int) (int, error)
}

// PostReactionRepository is the part of the reaction storage used by the post page and deletion
type PostReactionRepository interface {
	GetCounts(ctx context.Context, blogID int) (*models.ReactionCounts, error)
	GetUserReaction(ctx context.Context, userID, blogID int) (*models.ReactionType, error)
	DeleteByPost(ctx context.Context, blogID int) (int, error)
}

// CategoryLookup resolves the category chosen on the post form
type CategoryLookup interface {
	GetByID(ctx context.Context, id int) (*models.Category, error)
}

// PostBadgeAwarder grants the post-count badges
type PostBadgeAwarder interface {
	AwardForPostCount(ctx context.Context, userID, postCount int) error
}

// ImageStore saves and deletes uploaded images
type ImageStore interface {
	// Method SaveImage validates and stores an image, returning the stored file name.
	//
	// A bad image yields a *models.ValidationError.
	SaveImage(ctx context.Context, upload *models.Upload, mediaType models.MediaType) (string, error)
	// Method DeleteImage removes an image. Failures are only logged.
	DeleteImage(ctx context.Context, filename string, mediaType models.MediaType)
}

type postService struct {
	postRepo     PostRepository
	commentRepo  PostCommentRepository
	reactionRepo PostReactionRepository
	categories   CategoryLookup
	badges       PostBadgeAwarder
	images       ImageStore
	tx           Transactor
	logger       *zap.Logger
}

// NewPostService creates a new post service
func NewPostService(
	postRepo PostRepository,
	commentRepo PostCommentRepository,
	reactionRepo PostReactionRepository,
	categories CategoryLookup,
	badges PostBadgeAwarder,
	images ImageStore,
	tx Transactor,
	logger *zap.Logger,
) *postService {
	return &postService{
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		categories:   categories,
		badges:       badges,
		images:       images,
		tx:           tx,
		logger:       logger,
	}
}

// Create validates the form and stores a new post owned by the viewer.
//
// Post-count badges are awarded afterwards; a failure there is logged and does not fail the post.
func (s *postService) Create(ctx context.Context, viewer models.Viewer, req *models.PostRequest) (*models.Post, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.ErrForbidden
	}

	post := &models.Post{UserID: viewer.UserID}
	if err := s.applyRequest(ctx, post, req); err != nil {
		return nil, err
	}

	if req.Image != nil {
		filename, err := s.images.SaveImage(ctx, req.Image, models.MediaTypePost)
		if err != nil {
			return nil, err
		}
		post.FeaturedImage = filename
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.images.DeleteImage(ctx, post.FeaturedImage, models.MediaTypePost)
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError("Please select a valid category")
		}
		s.logger.Error("failed to create post", zap.Int("user_id", viewer.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.Info("post created", zap.Int("post_id", post.ID), zap.Int("user_id", viewer.UserID))
	s.awardBadges(ctx, viewer.UserID)

	return post, nil
}

// Update overwrites a post. Only the owner or an admin may edit it.
func (s *postService) Update(ctx context.Context, viewer models.Viewer, id int, req *models.PostRequest) (*models.Post, error) {
	post, err := s.GetForEdit(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyRequest(ctx, post, req); err != nil {
		return nil, err
	}

	oldImage := post.FeaturedImage
	switch {
	case req.Image != nil:
		filename, err := s.images.SaveImage(ctx, req.Image, models.MediaTypePost)
		if err != nil {
			return nil, err
		}
		post.FeaturedImage = filename
	case req.RemoveImage:
		post.FeaturedImage = ""
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.FeaturedImage != oldImage {
			s.images.DeleteImage(ctx, post.FeaturedImage, models.MediaTypePost)
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError("Please select a valid category")
		}
		s.logger.Error("failed to update post", zap.Int("post_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if post.FeaturedImage != oldImage {
		s.images.DeleteImage(ctx, oldImage, models.MediaTypePost)
	}

	return post, nil
}

// Delete removes a post with its comments and reactions in one transaction.
//
// The featured image is deleted afterwards on a best-effort basis.
func (s *postService) Delete(ctx context.Context, viewer models.Viewer, id int) error {
	post, err := s.GetForEdit(ctx, viewer, id)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.commentRepo.DeleteByPost(ctx, id); err != nil {
			return err
		}
		if _, err := s.reactionRepo.DeleteByPost(ctx, id); err != nil {
			return err
		}
		return s.postRepo.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("failed to delete post", zap.Int("post_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.images.DeleteImage(ctx, post.FeaturedImage, models.MediaTypePost)
	s.logger.Info("post deleted", zap.Int("post_id", id), zap.Int("by_user_id", viewer.UserID))
	return nil
}

// View loads the post page: the post, the first page of comments and the reaction state.
//
// Drafts are reported as not found to everyone but the owner and admins.
// The view counter is incremented unless the viewer is the author.
func (s *postService) View(ctx context.Context, viewer models.Viewer, id int) (*models.PostPage, error) {
	post, err := s.getVisible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	if viewer.UserID != post.UserID {
		if err := s.postRepo.IncrementViews(ctx, id); err != nil {
			s.logger.Warn("failed to increment views", zap.Int("post_id", id), zap.Error(err))
		} else {
			post.Views++
		}
	}

	comments, err := s.commentRepo.ListByPost(ctx, id, 0, models.CommentsPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	total, err := s.commentRepo.CountByPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	counts, err := s.reactionRepo.GetCounts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction counts: %w", err)
	}
	state := models.ReactionState{ReactionCounts: *counts}
	if viewer.IsAuthenticated() {
		if state.UserReaction, err = s.reactionRepo.GetUserReaction(ctx, viewer.UserID, id); err != nil {
			return nil, fmt.Errorf("failed to get user reaction: %w", err)
		}
	}

	return &models.PostPage{
		Post:          post,
		Comments:      comments,
		TotalComments: total,
		Reactions:     state,
		CanManage:     viewer.CanManage(post.UserID),
	}, nil
}

// GetVisible returns a post if the viewer may see it
func (s *postService) GetVisible(ctx context.Context, viewer models.Viewer, id int) (*models.Post, error) {
	return s.getVisible(ctx, viewer, id)
}

// GetForEdit returns a post for its edit form. Only the owner or an admin may load it.
func (s *postService) GetForEdit(ctx context.Context, viewer models.Viewer, id int) (*models.Post, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.ErrForbidden
	}
	if id <= 0 {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanManage(post.UserID) {
		return nil, models.ErrForbidden
	}
	return post, nil
}

// List returns a page of published posts, optionally filtered by category and search term
func (s *postService) List(ctx context.Context, filter models.PostFilter) (*models.PostList, error) {
	filter.Status = models.PostStatusPublished
	filter.UserID = 0
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Count = models.PostsPerPage
	return s.list(ctx, filter)
}

// ListByAuthor returns a page of an author's posts. Drafts are included only for the author and admins.
func (s *postService) ListByAuthor(ctx context.Context, viewer models.Viewer, authorID, page int) (*models.PostList, error) {
	filter := models.PostFilter{
		UserID: authorID,
		Page:   page,
		Count:  models.PostsPerPage,
	}
	if !viewer.CanManage(authorID) {
		filter.Status = models.PostStatusPublished
	}
	return s.list(ctx, filter)
}

func (s *postService) list(ctx context.Context, filter models.PostFilter) (*models.PostList, error) {
	total, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("failed to count posts", zap.Error(err))
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	pagination := models.NewPagination(filter.Page, filter.Count, total)
	filter.Page = pagination.Page

	posts := []models.PostListItem{}
	if total > 0 {
		if posts, err = s.postRepo.List(ctx, filter); err != nil {
			s.logger.Error("failed to list posts", zap.Error(err))
			return nil, fmt.Errorf("failed to list posts: %w", err)
		}
	}

	return &models.PostList{Posts: posts, Pagination: pagination}, nil
}

func (s *postService) getVisible(ctx context.Context, viewer models.Viewer, id int) (*models.Post, error) {
	if id <= 0 {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusPublished && !viewer.CanManage(post.UserID) {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}
	return post, nil
}

// applyRequest validates the form and copies it onto post
func (s *postService) applyRequest(ctx context.Context, post *models.Post, req *models.PostRequest) error {
	title := strings.TrimSpace(req.Title)
	content := markup.SanitizeHTML(req.Content)
	summary := strings.TrimSpace(req.Summary)

	verr := models.NewValidationError()
	if n := runeLen(title); n < models.MinTitleLength || n > models.MaxTitleLength {
		verr.Add(fmt.Sprintf("Title must be between %d and %d characters", models.MinTitleLength, models.MaxTitleLength))
	}
	if runeLen(markup.PlainText(content)) < models.MinContentLength {
		verr.Add(fmt.Sprintf("Content must be at least %d characters", models.MinContentLength))
	}
	if len(content) > models.MaxContentLength {
		verr.Add("Content is too long")
	}
	if runeLen(summary) > models.MaxSummaryLength {
		verr.Add(fmt.Sprintf("Summary must be at most %d characters", models.MaxSummaryLength))
	}
	status := req.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if !status.IsValid() {
		verr.Add("Invalid post status")
	}

	var categoryID *int
	if req.CategoryID != nil && *req.CategoryID > 0 {
		if _, err := s.categories.GetByID(ctx, *req.CategoryID); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("failed to get category: %w", err)
			}
			verr.Add("Please select a valid category")
		} else {
			id := *req.CategoryID
			categoryID = &id
		}
	}

	if verr.HasErrors() {
		return verr
	}

	if summary == "" {
		summary = markup.Summarize(content, markup.SummaryLength)
	}

	post.Title = title
	post.Content = content
	post.Summary = summary
	post.Status = status
	post.CategoryID = categoryID
	return nil
}

func (s *postService) awardBadges(ctx context.Context, userID int) {
	count, err := s.postRepo.CountByUser(ctx, userID)
	if err == nil {
		err = s.badges.AwardForPostCount(ctx, userID, count)
	}
	if err != nil {
		s.logger.Warn("failed to award post badges", zap.Int("user_id", userID), zap.Error(err))
	}
}
