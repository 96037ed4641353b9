package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/views"
	libhandlers "github.com/bloghut/backend/libs/handlers"
	"github.com/bloghut/backend/libs/middlewares"
	"go.uber.org/zap"
)

const errorMessage = "An error occurred"

// BaseHandler provides the rendering and error helpers shared by the page and API handlers
type BaseHandler struct {
	libhandlers.BaseHandler
	views *views.Renderer
}

func newBaseHandler(renderer *views.Renderer, logger *zap.Logger) BaseHandler {
	return BaseHandler{
		BaseHandler: libhandlers.BaseHandler{Logger: logger},
		views:       renderer,
	}
}

// render writes a full page with the given inline validation messages
func (h *BaseHandler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any, errs ...string) {
	p := views.NewPage(r, title, data)
	p.Errors = errs
	h.views.Render(w, status, page, p)
}

// renderForm re-renders a form after a failed submission.
// Validation errors are shown inline; anything else is logged and shown as a generic message.
func (h *BaseHandler) renderForm(w http.ResponseWriter, r *http.Request, err error, page, title string, data any) {
	if messages := models.ValidationMessages(err); len(messages) > 0 {
		h.render(w, r, http.StatusUnprocessableEntity, page, title, data, messages...)
		return
	}
	h.logError(r, "form submission failed", err)
	h.render(w, r, http.StatusInternalServerError, page, title, data, errorMessage)
}

// renderError writes the error page
func (h *BaseHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", http.StatusText(status), &views.ErrorData{Status: status, Message: message})
}

// redirect queues a flash message and redirects with 303 See Other
func (h *BaseHandler) redirect(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if message != "" {
		session.FromContext(r.Context()).AddFlash(kind, message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail maps a service error to a browser response.
// Not-found, permission and validation errors redirect to fallback with a flash;
// anything else is logged and answered with the error page.
func (h *BaseHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.redirect(w, r, fallback, session.FlashError, notFoundMessage(err))
	case errors.Is(err, models.ErrForbidden):
		h.redirect(w, r, fallback, session.FlashError, "You do not have permission to do that")
	case errors.Is(err, models.ErrCategoryHasPosts):
		h.redirect(w, r, fallback, session.FlashError, "This category still has posts and cannot be deleted")
	case errors.Is(err, models.ErrValidation):
		h.redirect(w, r, fallback, session.FlashError, strings.Join(models.ValidationMessages(err), " "))
	default:
		h.logError(r, "request failed", err)
		h.renderError(w, r, http.StatusInternalServerError, errorMessage)
	}
}

// failJSON maps a service error to the AJAX envelope
func (h *BaseHandler) failJSON(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		h.RespondError(w, http.StatusBadRequest, strings.Join(models.ValidationMessages(err), " "))
	case errors.Is(err, models.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, models.ErrForbidden):
		h.RespondError(w, http.StatusForbidden, "Permission denied")
	default:
		h.logError(r, "API request failed", err)
		h.RespondError(w, http.StatusInternalServerError, errorMessage)
	}
}

func (h *BaseHandler) logError(r *http.Request, msg string, err error) {
	h.Logger.Error(msg,
		zap.String("request_id", middlewares.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}

// notFoundMessage turns "post not found" into "Post not found"
func notFoundMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, models.ErrNotFound.Error()); idx >= 0 {
		msg = msg[:idx+len(models.ErrNotFound.Error())]
	}
	// strip wrapping prefixes such as "failed to get post: "
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		msg = msg[idx+2:]
	}
	if msg == models.ErrNotFound.Error() || msg == "" {
		return "Page not found"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// NotFound renders the error page for unknown routes
func (h *BaseHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if middlewares.WantsJSON(r) {
		h.RespondError(w, http.StatusNotFound, "Not found")
		return
	}
	h.renderError(w, r, http.StatusNotFound, "Page not found")
}
