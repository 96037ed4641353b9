package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bloghut/backend/internal/middleware"
	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/views"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProfileService is the interface that wraps methods for user profile business logic.
type ProfileService interface {
	// Method GetProfile returns the public profile of a user with badges and one page of published posts.
	//
	// An unknown username yields an error wrapping models.ErrNotFound.
	GetProfile(ctx context.Context, username string, page int) (*models.Profile, error)
	// Method GetForEdit returns the viewer's own account.
	GetForEdit(ctx context.Context, viewer models.Viewer) (*models.User, error)
	// Method UpdateProfile saves the profile form of the viewer.
	//
	// A new password requires the current one. Form problems are returned as *models.ValidationError.
	UpdateProfile(ctx context.Context, viewer models.Viewer, req *models.UpdateProfileRequest) (*models.User, error)
}

// ProfileHandler handles the public profile and the profile editor
type ProfileHandler struct {
	BaseHandler
	service  ProfileService
	sessions SessionManager
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(svc ProfileService, sessions SessionManager, renderer *views.Renderer, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler: newBaseHandler(renderer, logger),
		service:     svc,
		sessions:    sessions,
	}
}

// RegisterRoutes registers all profile handler routes
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{username}", h.Profile)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin())
		r.Get("/profile/edit", h.EditForm)
		r.Post("/profile/edit", h.Update)
	})
}

// Profile handles GET /users/{username}
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.service.GetProfile(r.Context(), username, queryInt(r, "page", 1))
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, "profile", profile.User.Username, profile)
}

// EditForm handles GET /profile/edit
func (h *ProfileHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetForEdit(r.Context(), session.FromContext(r.Context()).Viewer())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, "profile_edit", "Edit profile", &views.ProfileEditData{
		User: user,
		Form: views.ProfileForm{Username: user.Username, Email: user.Email, Bio: user.Bio},
	})
}

// Update handles POST /profile/edit
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	viewer := sess.Viewer()

	current, err := h.service.GetForEdit(r.Context(), viewer)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	avatar, done, err := formUpload(r, "profile_image")
	defer done()

	req := &models.UpdateProfileRequest{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Bio:             r.FormValue("bio"),
		CurrentPassword: r.FormValue("current_password"),
		NewPassword:     r.FormValue("new_password"),
		ConfirmPassword: r.FormValue("confirm_password"),
		Avatar:          avatar,
		RemoveAvatar:    checked(r, "remove_avatar"),
	}
	data := &views.ProfileEditData{
		User: current,
		Form: views.ProfileForm{Username: req.Username, Email: req.Email, Bio: req.Bio},
	}

	var user *models.User
	if err == nil {
		user, err = h.service.UpdateProfile(r.Context(), viewer, req)
	}
	if err != nil {
		h.renderForm(w, r, err, "profile_edit", "Edit profile", data)
		return
	}

	// keep the header in sync with a renamed account
	if user.Username != viewer.Username {
		h.sessions.Login(sess, user)
	}

	h.redirect(w, r, "/users/"+url.PathEscape(user.Username), session.FlashSuccess, "Profile updated.")
}
