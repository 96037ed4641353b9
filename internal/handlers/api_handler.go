package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bloghut/backend/internal/middleware"
	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/views"
	"github.com/bloghut/backend/libs/middlewares"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxJSONBody is the largest accepted AJAX request body
const maxJSONBody = 64 << 10

// CommentService is the interface that wraps methods for Comment business logic.
type CommentService interface {
	// Method Add validates and stores a comment of the viewer on a visible post.
	//
	// The returned comment carries the author's username and profile image.
	// Length problems ("Comment is too short", "Comment is too long") are returned as *models.ValidationError.
	Add(ctx context.Context, viewer models.Viewer, req *models.AddCommentRequest) (*models.Comment, error)
	// Method List returns a slice of the comments of a post, newest first.
	//
	// "offset" and "limit" select the slice; HasMore reports whether comments remain after it.
	List(ctx context.Context, viewer models.Viewer, postID, offset, limit int) (*models.CommentPage, error)
	// Method Delete removes a comment owned by the viewer (or any comment for admins).
	Delete(ctx context.Context, viewer models.Viewer, id int) error
}

// ReactionService is the interface that wraps methods for Reaction business logic.
type ReactionService interface {
	// Method SetReaction applies a like or dislike of the viewer.
	//
	// Sending the active type again removes the reaction; the other type replaces it.
	SetReaction(ctx context.Context, viewer models.Viewer, blogID int, reactionType models.ReactionType) (*models.ReactionState, error)
	// Method GetState returns the counts of a post and the viewer's own reaction.
	GetState(ctx context.Context, viewer models.Viewer, blogID int) (*models.ReactionState, error)
}

// CommentResponse is a comment as returned by the JSON API
type CommentResponse struct {
	models.Comment
	// Rendered and sanitized Markdown of the comment
	CommentHTML string `json:"comment_html"`
	CanDelete   bool   `json:"can_delete"`
}

// APIHandler handles the AJAX endpoints for comments and reactions
type APIHandler struct {
	BaseHandler
	comments  CommentService
	reactions ReactionService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(comments CommentService, reactions ReactionService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		BaseHandler: newBaseHandler(nil, logger),
		comments:    comments,
		reactions:   reactions,
	}
}

// RegisterRoutes registers all API handler routes
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(middlewares.RequireAJAXMiddleware)

		r.Get("/comments", h.ListComments)
		r.Get("/reactions", h.GetReactions)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin())
			r.Post("/comments", h.AddComment)
			r.Delete("/comments/{id}", h.DeleteComment)
			r.Post("/reactions", h.SetReaction)
		})
	})
}

// AddComment handles POST /api/comments
// @Summary Add a comment
// @Description Add a comment to a post. Comment text supports Markdown.
// @Tags comments
// @Accept json
// @Produce json
// @Param X-Requested-With header string true "Must be XMLHttpRequest"
// @Param X-CSRF-Token header string true "Session CSRF token"
// @Param request body models.AddCommentRequest true "Post ID and comment text"
// @Success 200 {object} map[string]interface{} "success, message, comment"
// @Failure 400 {object} map[string]interface{} "success=false, message"
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/comments [post]
func (h *APIHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req models.AddCommentRequest
	if !h.decode(w, r, &req) {
		return
	}

	viewer := session.FromContext(r.Context()).Viewer()
	comment, err := h.comments.Add(r.Context(), viewer, &req)
	if err != nil {
		h.failJSON(w, r, err)
		return
	}

	h.RespondSuccess(w, http.StatusOK, "Comment added successfully", map[string]any{
		"comment": commentResponse(*comment, viewer),
	})
}

// ListComments handles GET /api/comments
// @Summary List comments of a post
// @Description Get a slice of the comments of a post, newest first
// @Tags comments
// @Produce json
// @Param X-Requested-With header string true "Must be XMLHttpRequest"
// @Param blog_id query int true "Post ID"
// @Param offset query int false "Number of comments to skip, default: 0"
// @Param limit query int false "Number of comments to return, default: 10"
// @Success 200 {object} map[string]interface{} "success, comments, total, has_more"
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/comments [get]
func (h *APIHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := queryInt(r, "blog_id", 0)
	if postID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "Invalid post")
		return
	}

	viewer := session.FromContext(r.Context()).Viewer()
	page, err := h.comments.List(r.Context(), viewer, postID, queryInt(r, "offset", 0), queryInt(r, "limit", models.CommentsPageSize))
	if err != nil {
		h.failJSON(w, r, err)
		return
	}

	comments := make([]CommentResponse, 0, len(page.Comments))
	for _, c := range page.Comments {
		comments = append(comments, commentResponse(c, viewer))
	}

	h.RespondSuccess(w, http.StatusOK, "", map[string]any{
		"comments": comments,
		"total":    page.Total,
		"has_more": page.HasMore,
	})
}

// DeleteComment handles DELETE /api/comments/{id}
// @Summary Delete a comment
// @Description Delete a comment. Only its author or an admin may delete it.
// @Tags comments
// @Produce json
// @Param X-Requested-With header string true "Must be XMLHttpRequest"
// @Param X-CSRF-Token header string true "Session CSRF token"
// @Param id path int true "Comment ID"
// @Success 200 {object} map[string]interface{} "success, message"
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/comments/{id} [delete]
func (h *APIHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.RespondError(w, http.StatusNotFound, "Comment not found")
		return
	}

	if err := h.comments.Delete(r.Context(), session.FromContext(r.Context()).Viewer(), id); err != nil {
		h.failJSON(w, r, err)
		return
	}

	h.RespondSuccess(w, http.StatusOK, "Comment deleted successfully", nil)
}

// SetReaction handles POST /api/reactions
// @Summary React to a post
// @Description Like or dislike a post. Sending the active reaction again removes it.
// @Tags reactions
// @Accept json
// @Produce json
// @Param X-Requested-With header string true "Must be XMLHttpRequest"
// @Param X-CSRF-Token header string true "Session CSRF token"
// @Param request body models.SetReactionRequest true "Post ID and reaction type (like or dislike)"
// @Success 200 {object} map[string]interface{} "success, message, likes, dislikes, user_reaction"
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/reactions [post]
func (h *APIHandler) SetReaction(w http.ResponseWriter, r *http.Request) {
	var req models.SetReactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := h.reactions.SetReaction(r.Context(), session.FromContext(r.Context()).Viewer(), req.BlogID, req.Type)
	if err != nil {
		h.failJSON(w, r, err)
		return
	}

	h.RespondSuccess(w, http.StatusOK, "Reaction updated", reactionPayload(state))
}

// GetReactions handles GET /api/reactions
// @Summary Get reactions of a post
// @Description Get the like and dislike counts of a post and the viewer's own reaction
// @Tags reactions
// @Produce json
// @Param X-Requested-With header string true "Must be XMLHttpRequest"
// @Param blog_id query int true "Post ID"
// @Success 200 {object} map[string]interface{} "success, likes, dislikes, user_reaction"
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/reactions [get]
func (h *APIHandler) GetReactions(w http.ResponseWriter, r *http.Request) {
	postID := queryInt(r, "blog_id", 0)
	if postID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "Invalid post")
		return
	}

	state, err := h.reactions.GetState(r.Context(), session.FromContext(r.Context()).Viewer(), postID)
	if err != nil {
		h.failJSON(w, r, err)
		return
	}

	h.RespondSuccess(w, http.StatusOK, "", reactionPayload(state))
}

// decode reads a JSON body, answering 400 itself when it is malformed
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.RespondError(w, http.StatusBadRequest, "Invalid request")
		return false
	}
	return true
}

func commentResponse(c models.Comment, viewer models.Viewer) CommentResponse {
	return CommentResponse{
		Comment:     c,
		CommentHTML: string(views.CommentHTML(c.Comment)),
		CanDelete:   viewer.CanManage(c.UserID),
	}
}

func reactionPayload(state *models.ReactionState) map[string]any {
	return map[string]any{
		"likes":         state.Likes,
		"dislikes":      state.Dislikes,
		"user_reaction": state.UserReaction,
	}
}
