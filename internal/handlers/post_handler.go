package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/bloghut/backend/internal/middleware"
	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/views"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PostService is the interface that wraps methods for BlogPost business logic.
type PostService interface {
	// Method Create validates the form and stores a new post authored by the viewer.
	//
	// The featured image, if any, is saved first and removed again when the insert fails.
	// Form problems are returned as *models.ValidationError.
	Create(ctx context.Context, viewer models.Viewer, req *models.PostRequest) (*models.Post, error)
	// Method Update replaces the editable fields of a post owned by the viewer (or any post for admins).
	Update(ctx context.Context, viewer models.Viewer, id int, req *models.PostRequest) (*models.Post, error)
	// Method Delete removes a post with its comments and reactions.
	Delete(ctx context.Context, viewer models.Viewer, id int) error
	// Method View returns the post page and counts the view.
	//
	// Drafts are only visible to their author and admins; others get an error wrapping models.ErrNotFound.
	View(ctx context.Context, viewer models.Viewer, id int) (*models.PostPage, error)
	// Method GetForEdit returns a post the viewer may edit, or models.ErrForbidden.
	GetForEdit(ctx context.Context, viewer models.Viewer, id int) (*models.Post, error)
	// Method List returns one page of published posts matching the filter.
	List(ctx context.Context, filter models.PostFilter) (*models.PostList, error)
	// Method ListByAuthor returns the posts of an author; drafts are included for the author and admins.
	ListByAuthor(ctx context.Context, viewer models.Viewer, authorID, page int) (*models.PostList, error)
}

// CategoryService is the interface that wraps methods for Category lookups used by the public pages.
type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
}

// CommentLimits are the comment length bounds shown on the post page
type CommentLimits struct {
	Min int
	Max int
}

// PostHandler handles the post pages
type PostHandler struct {
	BaseHandler
	service    PostService
	categories CategoryService
	limits     CommentLimits
}

// NewPostHandler creates a new post handler
func NewPostHandler(svc PostService, categories CategoryService, limits CommentLimits, renderer *views.Renderer, logger *zap.Logger) *PostHandler {
	if limits.Min <= 0 {
		limits.Min = models.MinCommentLength
	}
	if limits.Max <= 0 {
		limits.Max = models.MaxCommentLength
	}
	return &PostHandler{
		BaseHandler: newBaseHandler(renderer, logger),
		service:     svc,
		categories:  categories,
		limits:      limits,
	}
}

// RegisterRoutes registers all post handler routes
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/posts/{id}", h.View)
	r.Get("/categories", h.Categories)
	r.Get("/categories/{slug}", h.Category)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin())
		r.Get("/posts/new", h.NewForm)
		r.Post("/posts/new", h.Create)
		r.Get("/posts/{id}/edit", h.EditForm)
		r.Post("/posts/{id}/edit", h.Update)
		r.Post("/posts/{id}/delete", h.Delete)
		r.Get("/my/posts", h.MyPosts)
	})
}

// Home handles GET / with the optional q, category and page parameters
func (h *PostHandler) Home(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	categoryID := queryInt(r, "category", 0)

	posts, err := h.service.List(r.Context(), models.PostFilter{
		CategoryID: categoryID,
		Search:     search,
		Page:       queryInt(r, "page", 1),
	})
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	heading := "Latest posts"
	if search != "" {
		heading = "Search results for \"" + search + "\""
	}

	h.render(w, r, http.StatusOK, "home", "", &views.PostListData{
		Heading:            heading,
		Posts:              posts,
		Categories:         categories,
		SelectedCategoryID: categoryID,
		Search:             search,
	})
}

// Categories handles GET /categories
func (h *PostHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.render(w, r, http.StatusOK, "categories", "Categories", categories)
}

// Category handles GET /categories/{slug}
func (h *PostHandler) Category(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err, "/categories")
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("q"))
	posts, err := h.service.List(r.Context(), models.PostFilter{
		CategoryID: category.ID,
		Search:     search,
		Page:       queryInt(r, "page", 1),
	})
	if err != nil {
		h.fail(w, r, err, "/categories")
		return
	}

	h.render(w, r, http.StatusOK, "home", category.Name, &views.PostListData{
		Heading:  category.Name,
		Posts:    posts,
		Category: category,
		Search:   search,
	})
}

// View handles GET /posts/{id}
func (h *PostHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.redirect(w, r, "/", session.FlashError, "Post not found")
		return
	}

	page, err := h.service.View(r.Context(), session.FromContext(r.Context()).Viewer(), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, "post_view", page.Post.Title, &views.PostViewData{
		Page:             page,
		CommentsPageSize: models.CommentsPageSize,
		MinComment:       h.limits.Min,
		MaxComment:       h.limits.Max,
	})
}

// NewForm handles GET /posts/new
func (h *PostHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderPostForm(w, r, http.StatusOK, nil, views.PostForm{Status: string(models.PostStatusDraft)})
}

// Create handles POST /posts/new
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, form, done, err := postRequestFromForm(r)
	defer done()
	if err == nil {
		var post *models.Post
		post, err = h.service.Create(r.Context(), session.FromContext(r.Context()).Viewer(), req)
		if err == nil {
			h.redirect(w, r, "/posts/"+strconv.Itoa(post.ID), session.FlashSuccess, savedMessage(post, "created"))
			return
		}
	}

	h.renderPostFormError(w, r, err, nil, form)
}

// EditForm handles GET /posts/{id}/edit
func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postForEdit(w, r)
	if !ok {
		return
	}

	h.renderPostForm(w, r, http.StatusOK, post, views.PostForm{
		Title:      post.Title,
		Content:    post.Content,
		Summary:    post.Summary,
		CategoryID: derefID(post.CategoryID),
		Status:     string(post.Status),
	})
}

// Update handles POST /posts/{id}/edit
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postForEdit(w, r)
	if !ok {
		return
	}

	req, form, done, err := postRequestFromForm(r)
	defer done()
	if err == nil {
		var updated *models.Post
		updated, err = h.service.Update(r.Context(), session.FromContext(r.Context()).Viewer(), post.ID, req)
		if err == nil {
			h.redirect(w, r, "/posts/"+strconv.Itoa(updated.ID), session.FlashSuccess, savedMessage(updated, "updated"))
			return
		}
	}

	h.renderPostFormError(w, r, err, post, form)
}

// Delete handles POST /posts/{id}/delete
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.redirect(w, r, "/my/posts", session.FlashError, "Post not found")
		return
	}

	if err := h.service.Delete(r.Context(), session.FromContext(r.Context()).Viewer(), id); err != nil {
		h.fail(w, r, err, "/my/posts")
		return
	}

	h.redirect(w, r, "/my/posts", session.FlashSuccess, "Post deleted.")
}

// MyPosts handles GET /my/posts
func (h *PostHandler) MyPosts(w http.ResponseWriter, r *http.Request) {
	viewer := session.FromContext(r.Context()).Viewer()

	posts, err := h.service.ListByAuthor(r.Context(), viewer, viewer.UserID, queryInt(r, "page", 1))
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, "my_posts", "My posts", &views.PostListData{Heading: "My posts", Posts: posts})
}

// postForEdit loads the post of the URL and answers the request itself when it cannot be edited
func (h *PostHandler) postForEdit(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := urlID(r, "id")
	if err != nil {
		h.redirect(w, r, "/my/posts", session.FlashError, "Post not found")
		return nil, false
	}

	post, err := h.service.GetForEdit(r.Context(), session.FromContext(r.Context()).Viewer(), id)
	if err != nil {
		h.fail(w, r, err, "/my/posts")
		return nil, false
	}
	return post, true
}

func (h *PostHandler) renderPostForm(w http.ResponseWriter, r *http.Request, status int, post *models.Post, form views.PostForm, errs ...string) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	title := "New post"
	if post != nil {
		title = "Edit post"
	}
	h.render(w, r, status, "post_form", title, &views.PostFormData{Post: post, Form: form, Categories: categories}, errs...)
}

func (h *PostHandler) renderPostFormError(w http.ResponseWriter, r *http.Request, err error, post *models.Post, form views.PostForm) {
	if messages := models.ValidationMessages(err); len(messages) > 0 {
		h.renderPostForm(w, r, http.StatusUnprocessableEntity, post, form, messages...)
		return
	}
	if post != nil {
		// the post may have been deleted or taken away meanwhile
		h.fail(w, r, err, "/my/posts")
		return
	}
	h.logError(r, "failed to save post", err)
	h.renderPostForm(w, r, http.StatusInternalServerError, post, form, errorMessage)
}

// postRequestFromForm reads the post editor. The returned function releases the uploaded file.
func postRequestFromForm(r *http.Request) (*models.PostRequest, views.PostForm, func(), error) {
	image, done, err := formUpload(r, "featured_image")

	req := &models.PostRequest{
		Title:       r.FormValue("title"),
		Content:     r.FormValue("content"),
		Summary:     r.FormValue("summary"),
		CategoryID:  optionalID(r.FormValue("category_id")),
		Status:      models.PostStatus(r.FormValue("status")),
		Image:       image,
		RemoveImage: checked(r, "remove_image"),
	}
	form := views.PostForm{
		Title:      req.Title,
		Content:    req.Content,
		Summary:    req.Summary,
		CategoryID: derefID(req.CategoryID),
		Status:     string(req.Status),
	}
	return req, form, done, err
}

func savedMessage(post *models.Post, verb string) string {
	if post.Status == models.PostStatusPublished {
		return "Post " + verb + " and published."
	}
	return "Post " + verb + " as draft."
}

func derefID(id *int) int {
	if id == nil {
		return 0
	}
	return *id
}
