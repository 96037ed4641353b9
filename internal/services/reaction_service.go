package services

import (
	"context"
	"fmt"

	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// ReactionRepository is the interface that wraps methods for Reactions table data access
type ReactionRepository interface {
	// Method Toggle applies a reaction atomically: a new reaction is inserted, the same type again
	// removes it and a different type replaces it.
	//
	// Returns the user's reaction after the change, "nil" when it was removed.
	Toggle(ctx context.Context, userID, blogID int, reactionType models.ReactionType) (*models.ReactionType, error)
	// Method GetCounts returns the like and dislike counts of a post.
	GetCounts(ctx context.Context, blogID int) (*models.ReactionCounts, error)
	// Method GetUserReaction returns the user's reaction on a post, "nil" when there is none.
	GetUserReaction(ctx context.Context, userID, blogID int) (*models.ReactionType, error)
}

type reactionService struct {
	repo   ReactionRepository
	posts  PostVisibility
	logger *zap.Logger
}

// NewReactionService creates a new reaction service
func NewReactionService(repo ReactionRepository, posts PostVisibility, logger *zap.Logger) *reactionService {
	return &reactionService{
		repo:   repo,
		posts:  posts,
		logger: logger,
	}
}

// SetReaction likes or dislikes a post; repeating the current reaction removes it.
//
// Returns the counts after the change together with the viewer's reaction.
func (s *reactionService) SetReaction(ctx context.Context, viewer models.Viewer, blogID int, reactionType models.ReactionType) (*models.ReactionState, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.ErrForbidden
	}
	if !reactionType.IsValid() {
		return nil, models.NewValidationError("Invalid reaction type")
	}
	if _, err := s.posts.GetVisible(ctx, viewer, blogID); err != nil {
		return nil, err
	}

	current, err := s.repo.Toggle(ctx, viewer.UserID, blogID, reactionType)
	if err != nil {
		s.logger.Error("failed to toggle reaction",
			zap.Int("post_id", blogID),
			zap.Int("user_id", viewer.UserID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to set reaction: %w", err)
	}

	counts, err := s.repo.GetCounts(ctx, blogID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction counts: %w", err)
	}

	return &models.ReactionState{ReactionCounts: *counts, UserReaction: current}, nil
}

// GetState returns the counts of a post and the viewer's reaction, if logged in
func (s *reactionService) GetState(ctx context.Context, viewer models.Viewer, blogID int) (*models.ReactionState, error) {
	if _, err := s.posts.GetVisible(ctx, viewer, blogID); err != nil {
		return nil, err
	}

	counts, err := s.repo.GetCounts(ctx, blogID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction counts: %w", err)
	}
	state := &models.ReactionState{ReactionCounts: *counts}

	if viewer.IsAuthenticated() {
		if state.UserReaction, err = s.repo.GetUserReaction(ctx, viewer.UserID, blogID); err != nil {
			return nil, fmt.Errorf("failed to get user reaction: %w", err)
		}
	}
	return state, nil
}
