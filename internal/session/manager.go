package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/libs/auth/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cookie names
const (
	CookieName         = "bloghut_session"
	RememberCookieName = "bloghut_remember"
)

// Manager loads sessions from the signed cookie and commits them back to the store
type Manager struct {
	store  Store
	tokens *service.SessionTokenGenerator
	secure bool
	logger *zap.Logger
}

// NewManager creates a new session manager.
// The session lifetime is the expiry of the token generator.
func NewManager(store Store, tokens *service.SessionTokenGenerator, secure bool, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		tokens: tokens,
		secure: secure,
		logger: logger,
	}
}

// Middleware attaches the session to the request context and saves it
// before the first byte of the response is written.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)

		cw := &commitWriter{ResponseWriter: w}
		cw.commit = func() { m.commit(r.Context(), w, sess) }

		next.ServeHTTP(cw, r.WithContext(NewContext(r.Context(), sess)))
		cw.commitOnce()
	})
}

// Login binds a user to the session under a new id
func (m *Manager) Login(sess *Session, user *models.User) {
	sess.setUser(uuid.NewString(), user)
}

// Refresh updates the session user after the account changed elsewhere
func (m *Manager) Refresh(sess *Session, user *models.User) {
	sess.syncUser(user)
}

// Logout turns the session into a fresh anonymous one
func (m *Manager) Logout(sess *Session) {
	sess.reset(uuid.NewString())
}

// RememberToken returns the raw remember-me token sent by the browser
func (m *Manager) RememberToken(r *http.Request) string {
	cookie, err := r.Cookie(RememberCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetRememberCookie stores the remember-me token in a long-lived cookie
func (m *Manager) SetRememberCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRememberCookie removes the remember-me cookie
func (m *Manager) ClearRememberCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// load restores the session named by the cookie; invalid or unknown cookies start a new one
func (m *Manager) load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return NewSession(uuid.NewString(), Data{})
	}

	sid, err := m.tokens.ValidateToken(cookie.Value)
	if err != nil {
		m.logger.Debug("invalid session cookie", zap.Error(err))
		return NewSession(uuid.NewString(), Data{})
	}

	data, err := m.store.Get(r.Context(), sid)
	if err != nil {
		m.logger.Error("failed to load session", zap.Error(err))
		return NewSession(uuid.NewString(), Data{})
	}
	if data == nil {
		return NewSession(uuid.NewString(), Data{})
	}

	return NewSession(sid, *data)
}

// commit persists a changed session and refreshes the cookie
func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, sess *Session) {
	if sess.staleID != "" {
		if err := m.store.Delete(ctx, sess.staleID); err != nil {
			m.logger.Warn("failed to delete rotated session", zap.Error(err))
		}
		sess.staleID = ""
	}
	if !sess.dirty {
		return
	}

	data := sess.Data()
	if err := m.store.Save(ctx, sess.id, &data, m.tokens.Expiry()); err != nil {
		m.logger.Error("failed to save session", zap.Error(err))
		return
	}

	token, err := m.tokens.GenerateToken(sess.id)
	if err != nil {
		m.logger.Error("failed to sign session cookie", zap.Error(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.tokens.Expiry().Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	sess.dirty = false
}

// commitWriter runs commit once, right before the response headers go out
type commitWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (cw *commitWriter) commitOnce() {
	cw.once.Do(cw.commit)
}

func (cw *commitWriter) WriteHeader(code int) {
	cw.commitOnce()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	cw.commitOnce()
	return cw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController
func (cw *commitWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
