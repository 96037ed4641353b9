// Package middleware holds the request gates of the web application:
// login and admin guards, CSRF checks and remember-me resumption.
package middleware

import (
	"net/http"
	"net/url"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	authmw "github.com/bloghut/backend/libs/auth/middleware"
	"github.com/bloghut/backend/libs/middlewares"
)

// SessionResolver exposes the session user to the auth guards
func SessionResolver(r *http.Request) (authmw.Identity, bool) {
	viewer := session.FromContext(r.Context()).Viewer()
	if !viewer.IsAuthenticated() {
		return authmw.Identity{}, false
	}
	return authmw.Identity{
		UserID:   viewer.UserID,
		Username: viewer.Username,
		Role:     string(viewer.Role),
	}, true
}

// Deny answers a rejected request.
// API callers get the JSON envelope; browsers get a flash and a redirect.
func Deny(w http.ResponseWriter, r *http.Request, status int) {
	if middlewares.WantsJSON(r) {
		message := "Please log in to continue"
		if status == http.StatusForbidden {
			message = "Permission denied"
		}
		writeJSONError(w, status, message)
		return
	}

	sess := session.FromContext(r.Context())
	if status == http.StatusUnauthorized {
		sess.AddFlash(session.FlashError, "Please log in to continue")
		target := "/login"
		if r.Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	sess.AddFlash(session.FlashError, "You do not have permission to access this page")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireLogin lets only logged-in users through
func RequireLogin() func(http.Handler) http.Handler {
	return authmw.AuthMiddleware(SessionResolver, Deny)
}

// RequireAdmin lets only admins through
func RequireAdmin() func(http.Handler) http.Handler {
	return authmw.RoleMiddleware(SessionResolver, Deny, string(models.RoleAdmin))
}

// SafeRedirect returns target when it is a local path, fallback otherwise
func SafeRedirect(target, fallback string) string {
	if target == "" || target[0] != '/' || (len(target) > 1 && (target[1] == '/' || target[1] == '\\')) {
		return fallback
	}
	return target
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// message is one of the constants of this package
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
