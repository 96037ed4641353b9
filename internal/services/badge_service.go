package services

import (
	"context"
	"fmt"

	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// BadgeRepository is the interface that wraps methods for Badges and UserBadges tables data access
type BadgeRepository interface {
	// Method GetByName retrieves a catalog badge by its unique name.
	//
	// If the badge does not exist, a "badge not found" error will be returned together with "nil" value.
	GetByName(ctx context.Context, name string) (*models.Badge, error)
	// Method Award grants a badge to a user.
	//
	// Awarding a badge twice is not an error: the second call reports "false" and changes nothing.
	Award(ctx context.Context, userID, badgeID int) (bool, error)
	// Method ListByUser retrieves the badges earned by a user, oldest first.
	ListByUser(ctx context.Context, userID int) ([]models.UserBadge, error)
}

type badgeService struct {
	repo   BadgeRepository
	logger *zap.Logger
}

// NewBadgeService creates a new badge service
func NewBadgeService(repo BadgeRepository, logger *zap.Logger) *badgeService {
	return &badgeService{
		repo:   repo,
		logger: logger,
	}
}

// AwardRegistration grants the "Newcomer" badge
func (s *badgeService) AwardRegistration(ctx context.Context, userID int) error {
	return s.award(ctx, userID, models.BadgeNewcomer)
}

// AwardForPostCount grants every post-count badge whose threshold postCount has reached
func (s *badgeService) AwardForPostCount(ctx context.Context, userID, postCount int) error {
	if postCount >= models.FirstPostThreshold {
		if err := s.award(ctx, userID, models.BadgeFirstPost); err != nil {
			return err
		}
	}
	if postCount >= models.ProlificThreshold {
		if err := s.award(ctx, userID, models.BadgeProlificWriter); err != nil {
			return err
		}
	}
	return nil
}

// ListForUser returns the badges a user has earned
func (s *badgeService) ListForUser(ctx context.Context, userID int) ([]models.UserBadge, error) {
	badges, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return badges, nil
}

func (s *badgeService) award(ctx context.Context, userID int, name string) error {
	badge, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get badge %q: %w", name, err)
	}

	awarded, err := s.repo.Award(ctx, userID, badge.ID)
	if err != nil {
		return fmt.Errorf("failed to award badge %q: %w", name, err)
	}
	if awarded {
		s.logger.Info("badge awarded", zap.Int("user_id", userID), zap.String("badge", name))
	}
	return nil
}
