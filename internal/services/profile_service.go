package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ProfileUserRepository is the interface that wraps methods for Users table data access used by profiles
type ProfileUserRepository interface {
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, a "user not found" error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method GetByUsername retrieves a user by username.
	//
	// Please reference GetByID method for error values.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Method ExistsByEmailExcept checks if a user other than "exceptID" uses the email.
	ExistsByEmailExcept(ctx context.Context, email string, exceptID int) (bool, error)
	// Method ExistsByUsernameExcept checks if a user other than "exceptID" uses the username.
	ExistsByUsernameExcept(ctx context.Context, username string, exceptID int) (bool, error)
	// Method UpdateProfile overwrites username, email, bio and profile image.
	//
	// A taken username or email yields an error wrapping models.ErrDuplicate.
	UpdateProfile(ctx context.Context, user *models.User) error
	// Method UpdatePassword replaces the password hash of a user.
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	// Method GetStats returns published posts, comments written and likes received.
	GetStats(ctx context.Context, userID int) (*models.ProfileStats, error)
}

// ProfileBadges lists earned badges
type ProfileBadges interface {
	ListForUser(ctx context.Context, userID int) ([]models.UserBadge, error)
}

// ProfilePosts lists an author's posts
type ProfilePosts interface {
	ListByAuthor(ctx context.Context, viewer models.Viewer, authorID, page int) (*models.PostList, error)
}

type profileService struct {
	userRepo ProfileUserRepository
	badges   ProfileBadges
	posts    ProfilePosts
	images   ImageStore
	tx       Transactor
	logger   *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(
	userRepo ProfileUserRepository,
	badges ProfileBadges,
	posts ProfilePosts,
	images ImageStore,
	tx Transactor,
	logger *zap.Logger,
) *profileService {
	return &profileService{
		userRepo: userRepo,
		badges:   badges,
		posts:    posts,
		images:   images,
		tx:       tx,
		logger:   logger,
	}
}

// GetProfile returns the public profile of a user: badges, counters and published posts
func (s *profileService) GetProfile(ctx context.Context, username string, page int) (*models.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	badges, err := s.badges.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// An anonymous viewer only ever sees published posts
	posts, err := s.posts.ListByAuthor(ctx, models.Viewer{}, user.ID, page)
	if err != nil {
		return nil, err
	}

	stats, err := s.userRepo.GetStats(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile stats: %w", err)
	}

	return &models.Profile{
		User:       user,
		Badges:     badges,
		Posts:      posts.Posts,
		Pagination: posts.Pagination,
		Stats:      *stats,
	}, nil
}

// GetForEdit returns the viewer's own account for the profile form
func (s *profileService) GetForEdit(ctx context.Context, viewer models.Viewer) (*models.User, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.ErrForbidden
	}
	return s.userRepo.GetByID(ctx, viewer.UserID)
}

// UpdateProfile saves the profile form of the viewer.
//
// A new password requires the current one. Username, email and password change in one transaction;
// the replaced avatar file is deleted only after the commit.
func (s *profileService) UpdateProfile(ctx context.Context, viewer models.Viewer, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetForEdit(ctx, viewer)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	bio := strings.TrimSpace(req.Bio)

	verr := models.NewValidationError()
	validateUsername(verr, username)
	validateEmail(verr, email)
	if runeLen(bio) > models.MaxBioLength {
		verr.Add(fmt.Sprintf("Bio must be at most %d characters", models.MaxBioLength))
	}

	var passwordHash string
	if req.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
			verr.Add("Current password is incorrect")
		}
		validateNewPassword(verr, req.NewPassword, req.ConfirmPassword)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if err := s.checkUnique(ctx, verr, user.ID, username, email); err != nil {
		return nil, err
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if req.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	oldImage := user.ProfileImage
	updated := *user
	updated.Username = username
	updated.Email = email
	updated.Bio = bio
	switch {
	case req.Avatar != nil:
		filename, err := s.images.SaveImage(ctx, req.Avatar, models.MediaTypeAvatar)
		if err != nil {
			return nil, err
		}
		updated.ProfileImage = filename
	case req.RemoveAvatar:
		updated.ProfileImage = ""
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdateProfile(ctx, &updated); err != nil {
			return err
		}
		if passwordHash != "" {
			return s.userRepo.UpdatePassword(ctx, updated.ID, passwordHash)
		}
		return nil
	})
	if err != nil {
		if updated.ProfileImage != oldImage {
			s.images.DeleteImage(ctx, updated.ProfileImage, models.MediaTypeAvatar)
		}
		if errors.Is(err, models.ErrDuplicate) {
			return nil, models.NewValidationError("Username or email is already taken")
		}
		s.logger.Error("failed to update profile", zap.Int("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if updated.ProfileImage != oldImage {
		s.images.DeleteImage(ctx, oldImage, models.MediaTypeAvatar)
	}
	if passwordHash != "" {
		updated.PasswordHash = passwordHash
	}

	return &updated, nil
}

func (s *profileService) checkUnique(ctx context.Context, verr *models.ValidationError, userID int, username, email string) error {
	usernameExists, err := s.userRepo.ExistsByUsernameExcept(ctx, username, userID)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if usernameExists {
		verr.Add("Username is already taken")
	}

	emailExists, err := s.userRepo.ExistsByEmailExcept(ctx, email, userID)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if emailExists {
		verr.Add("Email is already registered")
	}
	return nil
}
