package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bloghut/backend/internal/middleware"
	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/views"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// authAttemptsPerMinute limits login, registration and reset submissions per IP
const authAttemptsPerMinute = 10

// AuthService is the interface that wraps methods for account business logic.
type AuthService interface {
	// Method Register validates the registration form and creates a new account.
	//
	// The "Newcomer" badge is awarded in the same transaction and a welcome email is queued.
	// Form problems and taken usernames or emails are returned as *models.ValidationError.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	// Method Login authenticates a user by username or email.
	//
	// Unknown users and wrong passwords both fail with models.ErrInvalidCredentials.
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, error)
	// Method Logout forgets the remember-me token presented by the browser, if any.
	Logout(ctx context.Context, rememberToken string) error
	// Method IssueRememberToken creates a remember-me token and returns the raw value with its expiry.
	IssueRememberToken(ctx context.Context, userID int) (string, time.Time, error)
	// Method RequestPasswordReset emails a reset link when the address belongs to an account.
	//
	// The result is the same whether or not the address is known.
	RequestPasswordReset(ctx context.Context, email string) error
	// Method ValidateResetToken returns a *models.ValidationError when the link can no longer be used.
	ValidateResetToken(ctx context.Context, token string) error
	// Method ResetPassword sets a new password using a reset token and consumes the token.
	ResetPassword(ctx context.Context, token, password, confirmPassword string) error
}

// SessionManager rotates sessions and handles the remember-me cookie
type SessionManager interface {
	Login(sess *session.Session, user *models.User)
	Logout(sess *session.Session)
	RememberToken(r *http.Request) string
	SetRememberCookie(w http.ResponseWriter, token string, expiresAt time.Time)
	ClearRememberCookie(w http.ResponseWriter)
}

// AuthHandler handles registration, login and password reset pages
type AuthHandler struct {
	BaseHandler
	service  AuthService
	sessions SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc AuthService, sessions SessionManager, renderer *views.Renderer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: newBaseHandler(renderer, logger),
		service:     svc,
		sessions:    sessions,
	}
}

// RegisterRoutes registers all auth handler routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	limit := httprate.LimitByIP(authAttemptsPerMinute, time.Minute)

	r.Get("/register", h.RegisterForm)
	r.With(limit).Post("/register", h.Register)
	r.Get("/login", h.LoginForm)
	r.With(limit).Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/forgot-password", h.ForgotPasswordForm)
	r.With(limit).Post("/forgot-password", h.ForgotPassword)
	r.Get("/reset-password", h.ResetPasswordForm)
	r.With(limit).Post("/reset-password", h.ResetPassword)
}

// RegisterForm handles GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Viewer().IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "register", "Sign up", &views.AuthForm{})
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req := &models.RegisterRequest{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		h.renderForm(w, r, err, "register", "Sign up", &views.AuthForm{Username: req.Username, Email: req.Email})
		return
	}

	h.redirect(w, r, "/login", session.FlashSuccess, "Registration successful. Please log in.")
}

// LoginForm handles GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	next := middleware.SafeRedirect(r.URL.Query().Get("next"), "")
	if session.FromContext(r.Context()).Viewer().IsAuthenticated() {
		http.Redirect(w, r, middleware.SafeRedirect(next, "/"), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", "Log in", &views.AuthForm{Next: next})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req := &models.LoginRequest{
		Login:      r.FormValue("login"),
		Password:   r.FormValue("password"),
		RememberMe: checked(r, "remember_me"),
	}
	next := middleware.SafeRedirect(r.FormValue("next"), "")
	form := &views.AuthForm{Login: req.Login, RememberMe: req.RememberMe, Next: next}

	user, err := h.service.Login(r.Context(), req)
	if errors.Is(err, models.ErrInvalidCredentials) {
		h.render(w, r, http.StatusUnauthorized, "login", "Log in", form, "Invalid credentials")
		return
	}
	if err != nil {
		h.renderForm(w, r, err, "login", "Log in", form)
		return
	}

	h.sessions.Login(session.FromContext(r.Context()), user)

	if req.RememberMe {
		token, expiresAt, err := h.service.IssueRememberToken(r.Context(), user.ID)
		if err != nil {
			// the login itself succeeded; only the cookie is missing
			h.logError(r, "failed to issue remember-me token", err)
		} else {
			h.sessions.SetRememberCookie(w, token, expiresAt)
		}
	}

	h.Logger.Info("user logged in", zap.Int("user_id", user.ID))
	h.redirect(w, r, middleware.SafeRedirect(next, "/"), session.FlashSuccess, "Welcome back, "+user.Username+"!")
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), h.sessions.RememberToken(r)); err != nil {
		h.logError(r, "failed to revoke remember-me token", err)
	}
	h.sessions.ClearRememberCookie(w)
	h.sessions.Logout(session.FromContext(r.Context()))

	h.redirect(w, r, "/", session.FlashInfo, "You have been logged out.")
}

// ForgotPasswordForm handles GET /forgot-password
func (h *AuthHandler) ForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "forgot_password", "Forgot password", &views.AuthForm{})
}

// ForgotPassword handles POST /forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")

	if err := h.service.RequestPasswordReset(r.Context(), email); err != nil {
		h.renderForm(w, r, err, "forgot_password", "Forgot password", &views.AuthForm{Email: email})
		return
	}

	h.redirect(w, r, "/login", session.FlashInfo, "If an account exists for that email, a password reset link has been sent.")
}

// ResetPasswordForm handles GET /reset-password?token=
func (h *AuthHandler) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	err := h.service.ValidateResetToken(r.Context(), token)
	if err != nil && !errors.Is(err, models.ErrValidation) {
		h.fail(w, r, err, "/forgot-password")
		return
	}

	h.render(w, r, http.StatusOK, "reset_password", "Reset password", &views.ResetForm{Token: token, Valid: err == nil})
}

// ResetPassword handles POST /reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")

	err := h.service.ResetPassword(r.Context(), token, r.FormValue("password"), r.FormValue("confirm_password"))
	if err != nil {
		h.renderForm(w, r, err, "reset_password", "Reset password", &views.ResetForm{Token: token, Valid: true})
		return
	}

	h.redirect(w, r, "/login", session.FlashSuccess, "Your password has been reset. Please log in.")
}
