package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/libs/middlewares"
	"go.uber.org/zap"
)

// CSRF form field and header names
const (
	CSRFFormField = "csrf_token"
	CSRFHeader    = "X-CSRF-Token"
)

const invalidCSRFMessage = "Invalid security token"

// CSRFMiddleware checks the session token on every state-changing request.
// The token comes from the X-CSRF-Token header or the csrf_token form field.
func CSRFMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			sess := session.FromContext(r.Context())
			expected := sess.Data().CSRFToken

			token := r.Header.Get(CSRFHeader)
			if token == "" {
				token = r.FormValue(CSRFFormField)
			}

			if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				logger.Warn("CSRF token mismatch",
					zap.String("request_id", middlewares.GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)

				if middlewares.WantsJSON(r) {
					writeJSONError(w, http.StatusBadRequest, invalidCSRFMessage)
					return
				}

				sess.AddFlash(session.FlashError, invalidCSRFMessage)
				http.Redirect(w, r, refererPath(r), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// refererPath returns the local path of the Referer header, or "/"
func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" {
		return "/"
	}
	if ref.Host != "" && ref.Host != r.Host {
		return "/"
	}
	path := ref.Path
	if ref.RawQuery != "" {
		path += "?" + ref.RawQuery
	}
	return SafeRedirect(path, "/")
}
