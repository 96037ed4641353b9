package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"go.uber.org/zap"
)

// RememberResumer finds the user behind a remember-me token
type RememberResumer interface {
	// ResumeFromRememberToken returns the owner of a valid token.
	// Unknown or expired tokens fail with an error wrapping models.ErrNotFound.
	ResumeFromRememberToken(ctx context.Context, token string) (*models.User, error)
}

// RememberMeMiddleware logs an anonymous session in from a valid remember-me cookie.
// An invalid cookie is cleared.
func RememberMeMiddleware(auth RememberResumer, sessions *session.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if sess.Viewer().IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}

			token := sessions.RememberToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := auth.ResumeFromRememberToken(r.Context(), token)
			switch {
			case err == nil:
				sessions.Login(sess, user)
				logger.Info("session resumed from remember-me token", zap.Int("user_id", user.ID))
			case errors.Is(err, models.ErrNotFound):
				sessions.ClearRememberCookie(w)
			default:
				logger.Error("failed to resume remember-me token", zap.Error(err))
			}

			next.ServeHTTP(w, r)
		})
	}
}
