package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// CommentRepository is the interface that wraps methods for Comments table data access
type CommentRepository interface {
	// Method Create inserts a comment; its ID is set on success.
	//
	// If the post no longer exists, a "post not found" error will be returned.
	Create(ctx context.Context, comment *models.Comment) error
	// Method GetByID retrieves a comment with its author's username and profile image.
	//
	// If comment with such ID does not exist, a "comment not found" error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Comment, error)
	// Method ListByPost retrieves the comments of a post newest first.
	//
	// "offset" skips that many comments; a "limit" of 0 returns all remaining comments.
	ListByPost(ctx context.Context, postID, offset, limit int) ([]models.Comment, error)
	// Method CountByPost returns the number of comments of a post.
	CountByPost(ctx context.Context, postID int) (int, error)
	// Method Delete removes a comment.
	//
	// If comment with such ID does not exist, a "comment not found" error will be returned.
	Delete(ctx context.Context, id int) error
	// Method GetAll retrieves a page of comments of all posts for the admin console.
	//
	// "search" matches the comment text, the author's username or the post title.
	GetAll(ctx context.Context, page, count int, search string) ([]models.CommentListItem, error)
	// Method Count returns the number of comments matching "search".
	Count(ctx context.Context, search string) (int, error)
}

// PostVisibility resolves a post the viewer is allowed to see
type PostVisibility interface {
	// Method GetVisible returns the post, or an error wrapping models.ErrNotFound when
	// it does not exist or is a draft the viewer may not see.
	GetVisible(ctx context.Context, viewer models.Viewer, id int) (*models.Post, error)
}

// maxCommentsPageSize caps the "limit" of a comment listing request
const maxCommentsPageSize = 50

type commentService struct {
	repo      CommentRepository
	posts     PostVisibility
	logger    *zap.Logger
	minLength int
	maxLength int
}

// NewCommentService creates a new comment service.
// Zero length bounds fall back to models.MinCommentLength and models.MaxCommentLength.
func NewCommentService(repo CommentRepository, posts PostVisibility, logger *zap.Logger, minLength, maxLength int) *commentService {
	if minLength <= 0 {
		minLength = models.MinCommentLength
	}
	if maxLength <= 0 {
		maxLength = models.MaxCommentLength
	}
	return &commentService{
		repo:      repo,
		posts:     posts,
		logger:    logger,
		minLength: minLength,
		maxLength: maxLength,
	}
}

// Add stores a comment written by the viewer and returns it with author info for immediate display
func (s *commentService) Add(ctx context.Context, viewer models.Viewer, req *models.AddCommentRequest) (*models.Comment, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.ErrForbidden
	}

	text := strings.TrimSpace(req.Comment)
	switch n := runeLen(text); {
	case n < s.minLength:
		return nil, models.NewValidationError("Comment is too short")
	case n > s.maxLength:
		return nil, models.NewValidationError("Comment is too long")
	}

	if _, err := s.posts.GetVisible(ctx, viewer, req.BlogID); err != nil {
		return nil, err
	}

	var parentID *int
	if req.ParentCommentID != nil && *req.ParentCommentID > 0 {
		parent, err := s.repo.GetByID(ctx, *req.ParentCommentID)
		if errors.Is(err, models.ErrNotFound) || (err == nil && parent.BlogID != req.BlogID) {
			return nil, models.NewValidationError("Invalid parent comment")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get parent comment: %w", err)
		}
		parentID = &parent.ID
	}

	comment := &models.Comment{
		BlogID:          req.BlogID,
		UserID:          viewer.UserID,
		ParentCommentID: parentID,
		Comment:         text,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to create comment", zap.Int("post_id", req.BlogID), zap.Error(err))
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created, err := s.repo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return created, nil
}

// List returns a slice of a post's comments, newest first
func (s *commentService) List(ctx context.Context, viewer models.Viewer, postID, offset, limit int) (*models.CommentPage, error) {
	if _, err := s.posts.GetVisible(ctx, viewer, postID); err != nil {
		return nil, err
	}

	offset = max(offset, 0)
	if limit <= 0 {
		limit = models.CommentsPageSize
	}
	limit = min(limit, maxCommentsPageSize)

	comments, err := s.repo.ListByPost(ctx, postID, offset, limit)
	if err != nil {
		s.logger.Error("failed to list comments", zap.Int("post_id", postID), zap.Error(err))
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	total, err := s.repo.CountByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	return &models.CommentPage{
		Comments: comments,
		Total:    total,
		HasMore:  offset+len(comments) < total,
	}, nil
}

// Delete removes a comment. Only its author or an admin may delete it.
func (s *commentService) Delete(ctx context.Context, viewer models.Viewer, id int) error {
	if !viewer.IsAuthenticated() {
		return models.ErrForbidden
	}
	if id <= 0 {
		return fmt.Errorf("comment %w", models.ErrNotFound)
	}

	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !viewer.CanManage(comment.UserID) {
		return models.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("comment deleted", zap.Int("comment_id", id), zap.Int("by_user_id", viewer.UserID))
	return nil
}

// ListAll returns a page of comments of all posts for the admin console
func (s *commentService) ListAll(ctx context.Context, page int, search string) (*models.CommentList, error) {
	search = strings.TrimSpace(search)

	total, err := s.repo.Count(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	pagination := models.NewPagination(page, models.AdminPageSize, total)

	comments := []models.CommentListItem{}
	if total > 0 {
		if comments, err = s.repo.GetAll(ctx, pagination.Page, models.AdminPageSize, search); err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}
	}

	return &models.CommentList{Comments: comments, Pagination: pagination}, nil
}
