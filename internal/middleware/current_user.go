package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"go.uber.org/zap"
)

// CurrentUserLoader reads the account behind a logged-in session
type CurrentUserLoader interface {
	// CurrentUser returns the user with the given ID.
	// A deleted account fails with an error wrapping models.ErrNotFound.
	CurrentUser(ctx context.Context, userID int) (*models.User, error)
}

// CurrentUserMiddleware checks the session user against the database on every request.
// A deleted account logs the session out; a renamed or re-roled one is refreshed.
// When the lookup fails for another reason the stored user is kept.
func CurrentUserMiddleware(users CurrentUserLoader, sessions *session.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			viewer := sess.Viewer()
			if !viewer.IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.CurrentUser(r.Context(), viewer.UserID)
			switch {
			case err == nil:
				sessions.Refresh(sess, user)
			case errors.Is(err, models.ErrNotFound):
				logger.Info("session user no longer exists", zap.Int("user_id", viewer.UserID))
				sessions.Logout(sess)
			default:
				logger.Error("failed to load session user", zap.Int("user_id", viewer.UserID), zap.Error(err))
			}

			next.ServeHTTP(w, r)
		})
	}
}
