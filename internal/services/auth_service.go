package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/libs/auth/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthUserRepository is the interface that wraps methods for Users table data access used by authentication
type AuthUserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user; its ID is set on success.
	//
	// If username or email is already taken, an error wrapping models.ErrDuplicate will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, a "user not found" error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method GetByEmailOrUsername retrieves a user by email or username.
	//
	// "login" parameter is compared against both columns.
	//
	// If user with such email or username does not exist, a "user not found" error will be returned together with "nil" value.
	GetByEmailOrUsername(ctx context.Context, login string) (*models.User, error)
	// Method GetByEmail retrieves a user by email.
	//
	// If user with such email does not exist, a "user not found" error will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method ExistsByUsername checks if a user with such username exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Method UpdatePassword replaces the password hash of a user.
	//
	// If user with such ID does not exist, a "user not found" error will be returned.
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// RememberTokenRepository is the interface that wraps methods for RememberTokens table data access
type RememberTokenRepository interface {
	// Method Create persists a remember-me token. Only the hash of the token is stored.
	Create(ctx context.Context, token *models.RememberToken) error
	// Method GetValid retrieves a token by hash that has not expired at "now".
	//
	// If there is no such token, a "token not found" error will be returned together with "nil" value.
	GetValid(ctx context.Context, tokenHash string, now time.Time) (*models.RememberToken, error)
	// Method DeleteByHash deletes a single token. Deleting a missing token is not an error.
	DeleteByHash(ctx context.Context, tokenHash string) error
	// Method DeleteByUser deletes every token of a user.
	DeleteByUser(ctx context.Context, userID int) error
}

// PasswordResetRepository is the interface that wraps methods for PasswordResets table data access
type PasswordResetRepository interface {
	// Method Create persists a reset token. Only the hash of the token is stored.
	Create(ctx context.Context, reset *models.PasswordReset) error
	// Method GetValid retrieves an unused token by hash that has not expired at "now".
	//
	// If there is no such token, a "reset token not found" error will be returned together with "nil" value.
	GetValid(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordReset, error)
	// Method MarkUsed stamps a token as consumed so it cannot be used again.
	MarkUsed(ctx context.Context, id int, usedAt time.Time) error
	// Method DeleteByUser deletes every reset token of a user.
	DeleteByUser(ctx context.Context, userID int) error
}

// RegistrationBadgeAwarder grants the badge every new account receives
type RegistrationBadgeAwarder interface {
	AwardRegistration(ctx context.Context, userID int) error
}

// EmailQueue enqueues transactional emails for the background worker
type EmailQueue interface {
	// Method EnqueueWelcome schedules the welcome email of a new account.
	EnqueueWelcome(ctx context.Context, email, username string) error
	// Method EnqueuePasswordReset schedules an email containing the reset link.
	EnqueuePasswordReset(ctx context.Context, email, username, resetURL string) error
}

// rememberTokenBytes is the entropy of remember-me and reset tokens
const rememberTokenBytes = 32

// dummyPasswordHash is compared on unknown logins so they cost as much as a wrong password
var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

type authService struct {
	userRepo          AuthUserRepository
	rememberTokenRepo RememberTokenRepository
	passwordResetRepo PasswordResetRepository
	badges            RegistrationBadgeAwarder
	tx                Transactor
	emails            EmailQueue
	logger            *zap.Logger
	rememberTTL       time.Duration
	baseURL           string
	now               func() time.Time
	compareHash       func(hash, password []byte) error
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo AuthUserRepository,
	rememberTokenRepo RememberTokenRepository,
	passwordResetRepo PasswordResetRepository,
	badges RegistrationBadgeAwarder,
	tx Transactor,
	emails EmailQueue,
	logger *zap.Logger,
	rememberTTL time.Duration,
	baseURL string,
) *authService {
	return &authService{
		userRepo:          userRepo,
		rememberTokenRepo: rememberTokenRepo,
		passwordResetRepo: passwordResetRepo,
		badges:            badges,
		tx:                tx,
		emails:            emails,
		logger:            logger,
		rememberTTL:       rememberTTL,
		baseURL:           strings.TrimRight(baseURL, "/"),
		now:               time.Now,
		compareHash:       bcrypt.CompareHashAndPassword,
	}
}

// Register creates a new user account and grants the "Newcomer" badge.
//
// The user is not logged in. Form problems are returned as *models.ValidationError.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)

	verr := models.NewValidationError()
	validateUsername(verr, username)
	validateEmail(verr, email)
	validateNewPassword(verr, req.Password, req.ConfirmPassword)
	if verr.HasErrors() {
		return nil, verr
	}

	// Friendly messages only; the unique keys decide
	usernameExists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if usernameExists {
		verr.Add("Username is already taken")
	}
	emailExists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if emailExists {
		verr.Add("Email is already registered")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         models.RoleUser,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return s.badges.AwardRegistration(ctx, user.ID)
	})
	if errors.Is(err, models.ErrDuplicate) {
		return nil, models.NewValidationError("Username or email is already taken")
	}
	if err != nil {
		s.logger.Error("failed to register user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", zap.Int("user_id", user.ID), zap.String("username", user.Username))

	// Mail is best-effort
	if err := s.emails.EnqueueWelcome(ctx, user.Email, user.Username); err != nil {
		s.logger.Warn("failed to enqueue welcome email", zap.Int("user_id", user.ID), zap.Error(err))
	}

	return user, nil
}

// Login authenticates a user by username or email.
//
// Unknown users and wrong passwords both fail with models.ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, models.NewValidationError("Please enter your username or email and password")
	}

	user, err := s.userRepo.GetByEmailOrUsername(ctx, login)
	if errors.Is(err, models.ErrNotFound) {
		s.compareHash(dummyPasswordHash(), []byte(req.Password))
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.compareHash([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// Logout forgets the remember-me token presented by the browser, if any
func (s *authService) Logout(ctx context.Context, rememberToken string) error {
	if rememberToken == "" {
		return nil
	}
	if err := s.rememberTokenRepo.DeleteByHash(ctx, service.HashToken(rememberToken)); err != nil {
		return fmt.Errorf("failed to delete remember token: %w", err)
	}
	return nil
}

// IssueRememberToken creates a remember-me token for a user.
//
// The raw token is returned for the cookie; only its SHA-256 hash is persisted.
func (s *authService) IssueRememberToken(ctx context.Context, userID int) (string, time.Time, error) {
	token, err := service.GenerateRandomToken(rememberTokenBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate remember token: %w", err)
	}

	expiresAt := s.now().Add(s.rememberTTL)
	record := &models.RememberToken{
		UserID:    userID,
		TokenHash: service.HashToken(token),
		ExpiresAt: expiresAt,
	}
	if err := s.rememberTokenRepo.Create(ctx, record); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to save remember token: %w", err)
	}

	return token, expiresAt, nil
}

// ResumeFromRememberToken returns the owner of a valid remember-me token.
//
// Unknown or expired tokens fail with an error wrapping models.ErrNotFound.
func (s *authService) ResumeFromRememberToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("token %w", models.ErrNotFound)
	}

	record, err := s.rememberTokenRepo.GetValid(ctx, service.HashToken(token), s.now())
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// CurrentUser returns the account behind a logged-in session.
//
// A deleted account fails with an error wrapping models.ErrNotFound.
func (s *authService) CurrentUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset emails a reset link when the address belongs to an account.
//
// The result is the same whether or not the address is known.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	verr := models.NewValidationError()
	validateEmail(verr, email)
	if verr.HasErrors() {
		return verr
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := service.GenerateRandomToken(rememberTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	// Only the newest link stays valid
	if err := s.passwordResetRepo.DeleteByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete old reset tokens: %w", err)
	}
	reset := &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: service.HashToken(token),
		ExpiresAt: s.now().Add(models.PasswordResetTTL),
	}
	if err := s.passwordResetRepo.Create(ctx, reset); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	resetURL := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.emails.EnqueuePasswordReset(ctx, user.Email, user.Username, resetURL); err != nil {
		s.logger.Warn("failed to enqueue password reset email", zap.Int("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// ValidateResetToken reports whether a reset link can still be used
func (s *authService) ValidateResetToken(ctx context.Context, token string) error {
	if token == "" {
		return invalidResetLink()
	}
	_, err := s.passwordResetRepo.GetValid(ctx, service.HashToken(token), s.now())
	if errors.Is(err, models.ErrNotFound) {
		return invalidResetLink()
	}
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token.
//
// The token is consumed and every remember-me token of the user is revoked.
func (s *authService) ResetPassword(ctx context.Context, token, password, confirmPassword string) error {
	verr := models.NewValidationError()
	validateNewPassword(verr, password, confirmPassword)
	if verr.HasErrors() {
		return verr
	}
	if token == "" {
		return invalidResetLink()
	}

	reset, err := s.passwordResetRepo.GetValid(ctx, service.HashToken(token), s.now())
	if errors.Is(err, models.ErrNotFound) {
		return invalidResetLink()
	}
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdatePassword(ctx, reset.UserID, string(passwordHash)); err != nil {
			return err
		}
		if err := s.passwordResetRepo.MarkUsed(ctx, reset.ID, s.now()); err != nil {
			return err
		}
		return s.rememberTokenRepo.DeleteByUser(ctx, reset.UserID)
	})
	if err != nil {
		s.logger.Error("failed to reset password", zap.Int("user_id", reset.UserID), zap.Error(err))
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("password reset", zap.Int("user_id", reset.UserID))
	return nil
}

func invalidResetLink() error {
	return models.NewValidationError("This password reset link is invalid or has expired")
}
