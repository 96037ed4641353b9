package middlewares

import (
	"net/http"
	"strings"
)

// IsAJAX reports whether the request was sent by the page scripts
func IsAJAX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// WantsJSON reports whether the response should use the JSON envelope instead of HTML
func WantsJSON(r *http.Request) bool {
	return IsAJAX(r) || strings.HasPrefix(r.URL.Path, "/api/")
}

// RequireAJAXMiddleware rejects requests without the X-Requested-With: XMLHttpRequest header
func RequireAJAXMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAJAX(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"Invalid request"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
