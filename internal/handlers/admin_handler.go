package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/bloghut/backend/internal/middleware"
	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/views"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminService is the interface that wraps methods for the admin console.
//
// Every mutating method takes the acting viewer and fails with models.ErrForbidden for non-admins.
type AdminService interface {
	// Method ListUsers returns one page of users, optionally filtered by role and a username/email search.
	ListUsers(ctx context.Context, page int, role models.Role, search string) (*models.UserList, error)
	// Method ToggleUserRole switches a user between "user" and "admin" and returns the new role.
	//
	// An admin cannot change their own role; that attempt is a *models.ValidationError.
	ToggleUserRole(ctx context.Context, viewer models.Viewer, userID int) (models.Role, error)
	// Method DeleteUser removes a user with their content. An admin cannot delete their own account.
	DeleteUser(ctx context.Context, viewer models.Viewer, userID int) error
	// Method ListPosts returns one page of posts of any status matching the filter.
	ListPosts(ctx context.Context, filter models.PostFilter) (*models.PostList, error)
	// Method TogglePostStatus publishes a draft or unpublishes a post and returns the new status.
	TogglePostStatus(ctx context.Context, viewer models.Viewer, postID int) (models.PostStatus, error)
	DeletePost(ctx context.Context, viewer models.Viewer, postID int) error
	ListComments(ctx context.Context, page int, search string) (*models.CommentList, error)
	DeleteComment(ctx context.Context, viewer models.Viewer, commentID int) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	CreateCategory(ctx context.Context, viewer models.Viewer, req *models.CategoryRequest) (*models.Category, error)
	UpdateCategory(ctx context.Context, viewer models.Viewer, id int, req *models.CategoryRequest) (*models.Category, error)
	// Method DeleteCategory removes a category; it fails with models.ErrCategoryHasPosts while posts reference it.
	DeleteCategory(ctx context.Context, viewer models.Viewer, id int) error
}

// AdminHandler handles the admin console pages
type AdminHandler struct {
	BaseHandler
	service AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(svc AdminService, renderer *views.Renderer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: newBaseHandler(renderer, logger),
		service:     svc,
	}
}

// RegisterRoutes registers all admin handler routes
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin())

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
		})

		r.Get("/users", h.Users)
		r.Post("/users/{id}/role", h.ToggleUserRole)
		r.Post("/users/{id}/delete", h.DeleteUser)

		r.Get("/posts", h.Posts)
		r.Post("/posts/{id}/status", h.TogglePostStatus)
		r.Post("/posts/{id}/delete", h.DeletePost)

		r.Get("/categories", h.Categories)
		r.Get("/categories/new", h.NewCategoryForm)
		r.Post("/categories/new", h.CreateCategory)
		r.Get("/categories/{id}/edit", h.EditCategoryForm)
		r.Post("/categories/{id}/edit", h.UpdateCategory)
		r.Post("/categories/{id}/delete", h.DeleteCategory)

		r.Get("/comments", h.Comments)
		r.Post("/comments/{id}/delete", h.DeleteComment)
	})
}

// Users handles GET /admin/users
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	role := models.Role(r.URL.Query().Get("role"))
	if !role.IsValid() {
		role = ""
	}
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	users, err := h.service.ListUsers(r.Context(), queryInt(r, "page", 1), role, search)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, "admin_users", "Users", &views.AdminUsersData{Users: users, Role: string(role), Search: search})
}

// ToggleUserRole handles POST /admin/users/{id}/role
func (h *AdminHandler) ToggleUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err == nil {
		var role models.Role
		role, err = h.service.ToggleUserRole(r.Context(), session.FromContext(r.Context()).Viewer(), id)
		if err == nil {
			h.redirect(w, r, "/admin/users", session.FlashSuccess, "Role changed to "+string(role)+".")
			return
		}
	}
	h.fail(w, r, err, "/admin/users")
}

// DeleteUser handles POST /admin/users/{id}/delete
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err == nil {
		err = h.service.DeleteUser(r.Context(), session.FromContext(r.Context()).Viewer(), id)
		if err == nil {
			h.redirect(w, r, "/admin/users", session.FlashSuccess, "User deleted.")
			return
		}
	}
	h.fail(w, r, err, "/admin/users")
}

// Posts handles GET /admin/posts
func (h *AdminHandler) Posts(w http.ResponseWriter, r *http.Request) {
	status := models.PostStatus(r.URL.Query().Get("status"))
	if !status.IsValid() {
		status = ""
	}
	categoryID := queryInt(r, "category", 0)
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	posts, err := h.service.ListPosts(r.Context(), models.PostFilter{
		Status:     status,
		CategoryID: categoryID,
		Search:     search,
		Page:       queryInt(r, "page", 1),
	})
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, "admin_posts", "Posts", &views.AdminPostsData{
		Posts:      posts,
		Categories: categories,
		Status:     string(status),
		CategoryID: categoryID,
		Search:     search,
	})
}

// TogglePostStatus handles POST /admin/posts/{id}/status
func (h *AdminHandler) TogglePostStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err == nil {
		var status models.PostStatus
		status, err = h.service.TogglePostStatus(r.Context(), session.FromContext(r.Context()).Viewer(), id)
		if err == nil {
			h.redirect(w, r, "/admin/posts", session.FlashSuccess, "Post is now "+string(status)+".")
			return
		}
	}
	h.fail(w, r, err, "/admin/posts")
}

// DeletePost handles POST /admin/posts/{id}/delete
func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err == nil {
		err = h.service.DeletePost(r.Context(), session.FromContext(r.Context()).Viewer(), id)
		if err == nil {
			h.redirect(w, r, "/admin/posts", session.FlashSuccess, "Post deleted.")
			return
		}
	}
	h.fail(w, r, err, "/admin/posts")
}

// Categories handles GET /admin/categories
func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.render(w, r, http.StatusOK, "admin_categories", "Categories", categories)
}

// NewCategoryForm handles GET /admin/categories/new
func (h *AdminHandler) NewCategoryForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin_category_form", "New category", &views.CategoryFormData{})
}

// CreateCategory handles POST /admin/categories/new
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	req := categoryRequestFromForm(r)

	category, err := h.service.CreateCategory(r.Context(), session.FromContext(r.Context()).Viewer(), req)
	if err != nil {
		h.renderForm(w, r, err, "admin_category_form", "New category", &views.CategoryFormData{Form: *req})
		return
	}

	h.redirect(w, r, "/admin/categories", session.FlashSuccess, "Category \""+category.Name+"\" created.")
}

// EditCategoryForm handles GET /admin/categories/{id}/edit
func (h *AdminHandler) EditCategoryForm(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}

	h.render(w, r, http.StatusOK, "admin_category_form", "Edit category", &views.CategoryFormData{
		Category: category,
		Form:     models.CategoryRequest{Name: category.Name, Description: category.Description},
	})
}

// UpdateCategory handles POST /admin/categories/{id}/edit
func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	req := categoryRequestFromForm(r)

	updated, err := h.service.UpdateCategory(r.Context(), session.FromContext(r.Context()).Viewer(), category.ID, req)
	if err != nil {
		h.renderForm(w, r, err, "admin_category_form", "Edit category", &views.CategoryFormData{Category: category, Form: *req})
		return
	}

	h.redirect(w, r, "/admin/categories", session.FlashSuccess, "Category \""+updated.Name+"\" updated.")
}

// DeleteCategory handles POST /admin/categories/{id}/delete
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err == nil {
		err = h.service.DeleteCategory(r.Context(), session.FromContext(r.Context()).Viewer(), id)
		if err == nil {
			h.redirect(w, r, "/admin/categories", session.FlashSuccess, "Category deleted.")
			return
		}
	}
	h.fail(w, r, err, "/admin/categories")
}

// Comments handles GET /admin/comments
func (h *AdminHandler) Comments(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	comments, err := h.service.ListComments(r.Context(), queryInt(r, "page", 1), search)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, "admin_comments", "Comments", &views.AdminCommentsData{Comments: comments, Search: search})
}

// DeleteComment handles POST /admin/comments/{id}/delete
func (h *AdminHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err == nil {
		err = h.service.DeleteComment(r.Context(), session.FromContext(r.Context()).Viewer(), id)
		if err == nil {
			h.redirect(w, r, "/admin/comments", session.FlashSuccess, "Comment deleted.")
			return
		}
	}
	h.fail(w, r, err, "/admin/comments")
}

func (h *AdminHandler) category(w http.ResponseWriter, r *http.Request) (*models.Category, bool) {
	id, err := urlID(r, "id")
	if err == nil {
		var category *models.Category
		category, err = h.service.GetCategory(r.Context(), id)
		if err == nil {
			return category, true
		}
	}
	h.fail(w, r, err, "/admin/categories")
	return nil, false
}

func categoryRequestFromForm(r *http.Request) *models.CategoryRequest {
	return &models.CategoryRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
}
