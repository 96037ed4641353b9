package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/libs/auth/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCSRFToken = "0123456789abcdef"

func withSession(r *http.Request, data session.Data) (*http.Request, *session.Session) {
	sess := session.NewSession("sid", data)
	return r.WithContext(session.NewContext(r.Context(), sess)), sess
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireLogin(t *testing.T) {
	tests := []struct {
		name             string
		data             session.Data
		ajax             bool
		expectedStatus   int
		expectedLocation string
		expectNext       bool
	}{
		{name: "logged in", data: session.Data{UserID: 1, Username: "alice", Role: models.RoleUser}, expectedStatus: http.StatusOK, expectNext: true},
		{name: "anonymous browser", expectedStatus: http.StatusSeeOther, expectedLocation: "/login?next=" + url.QueryEscape("/posts/new?x=1")},
		{name: "anonymous ajax", ajax: true, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/posts/new?x=1", nil)
			if tt.ajax {
				req.Header.Set("X-Requested-With", "XMLHttpRequest")
			}
			req, sess := withSession(req, tt.data)

			w := httptest.NewRecorder()
			RequireLogin()(okHandler(&called)).ServeHTTP(w, req)

			assert.Equal(t, tt.expectNext, called)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
				assert.Equal(t, []session.Flash{{Kind: session.FlashError, Message: "Please log in to continue"}}, sess.Flashes())
			}
			if tt.ajax {
				assert.JSONEq(t, `{"success":false,"message":"Please log in to continue"}`, w.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Run("regular user is redirected home", func(t *testing.T) {
		called := false
		req, sess := withSession(httptest.NewRequest(http.MethodGet, "/admin/users", nil),
			session.Data{UserID: 2, Username: "bob", Role: models.RoleUser})

		w := httptest.NewRecorder()
		RequireAdmin()(okHandler(&called)).ServeHTTP(w, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Len(t, sess.Flashes(), 1)
		assert.Empty(t, w.Body.String())
	})

	t.Run("regular user on api gets 403", func(t *testing.T) {
		called := false
		req, _ := withSession(httptest.NewRequest(http.MethodGet, "/api/admin", nil),
			session.Data{UserID: 2, Role: models.RoleUser})

		w := httptest.NewRecorder()
		RequireAdmin()(okHandler(&called)).ServeHTTP(w, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		called := false
		req, _ := withSession(httptest.NewRequest(http.MethodGet, "/admin/users", nil),
			session.Data{UserID: 9, Username: "root", Role: models.RoleAdmin})

		w := httptest.NewRecorder()
		RequireAdmin()(okHandler(&called)).ServeHTTP(w, req)

		assert.True(t, called)
	})
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/posts/3", SafeRedirect("/posts/3", "/"))
	assert.Equal(t, "/", SafeRedirect("//evil.example", "/"))
	assert.Equal(t, "/", SafeRedirect("/\\evil.example", "/"))
	assert.Equal(t, "/", SafeRedirect("https://evil.example", "/"))
	assert.Equal(t, "/home", SafeRedirect("", "/home"))
}

func TestCSRFMiddleware(t *testing.T) {
	tests := []struct {
		name             string
		method           string
		formToken        string
		headerToken      string
		ajax             bool
		sessionToken     string
		referer          string
		expectNext       bool
		expectedStatus   int
		expectedLocation string
	}{
		{name: "GET passes without token", method: http.MethodGet, expectNext: true, expectedStatus: http.StatusOK},
		{name: "form token matches", method: http.MethodPost, formToken: testCSRFToken, sessionToken: testCSRFToken, expectNext: true, expectedStatus: http.StatusOK},
		{name: "header token matches", method: http.MethodDelete, headerToken: testCSRFToken, ajax: true, sessionToken: testCSRFToken, expectNext: true, expectedStatus: http.StatusOK},
		{name: "wrong form token redirects back", method: http.MethodPost, formToken: "nope", sessionToken: testCSRFToken, referer: "http://example.com/posts/4/edit", expectedStatus: http.StatusSeeOther, expectedLocation: "/posts/4/edit"},
		{name: "foreign referer redirects home", method: http.MethodPost, formToken: "nope", sessionToken: testCSRFToken, referer: "http://evil.example/x", expectedStatus: http.StatusSeeOther, expectedLocation: "/"},
		{name: "session without token rejects", method: http.MethodPost, formToken: "", expectedStatus: http.StatusSeeOther, expectedLocation: "/"},
		{name: "ajax mismatch is a validation error", method: http.MethodPost, headerToken: "nope", ajax: true, sessionToken: testCSRFToken, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.formToken != "" {
				form.Set(CSRFFormField, tt.formToken)
			}
			req := httptest.NewRequest(tt.method, "http://example.com/posts/4/edit", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.headerToken != "" {
				req.Header.Set(CSRFHeader, tt.headerToken)
			}
			if tt.ajax {
				req.Header.Set("X-Requested-With", "XMLHttpRequest")
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			req, sess := withSession(req, session.Data{CSRFToken: tt.sessionToken})

			called := false
			w := httptest.NewRecorder()
			CSRFMiddleware(zap.NewNop())(okHandler(&called)).ServeHTTP(w, req)

			assert.Equal(t, tt.expectNext, called)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
				assert.Equal(t, []session.Flash{{Kind: session.FlashError, Message: "Invalid security token"}}, sess.Flashes())
			}
			if tt.ajax && !tt.expectNext {
				assert.JSONEq(t, `{"success":false,"message":"Invalid security token"}`, w.Body.String())
			}
		})
	}
}

type mockResumer struct {
	user  *models.User
	err   error
	token string
}

func (m *mockResumer) ResumeFromRememberToken(ctx context.Context, token string) (*models.User, error) {
	m.token = token
	return m.user, m.err
}

func newTestManager() *session.Manager {
	return session.NewManager(nil, service.NewSessionTokenGenerator("secret", time.Hour), false, zap.NewNop())
}

func TestRememberMeMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		cookie        string
		data          session.Data
		resumer       *mockResumer
		expectUserID  int
		expectCleared bool
		expectLookup  bool
	}{
		{name: "no cookie", resumer: &mockResumer{}},
		{name: "valid cookie logs in", cookie: "raw", resumer: &mockResumer{user: &models.User{ID: 4, Username: "alice", Role: models.RoleUser}}, expectUserID: 4, expectLookup: true},
		{name: "expired cookie is cleared", cookie: "raw", resumer: &mockResumer{err: fmt.Errorf("remember token %w", models.ErrNotFound)}, expectCleared: true, expectLookup: true},
		{name: "store failure keeps cookie", cookie: "raw", resumer: &mockResumer{err: errors.New("db down")}, expectLookup: true},
		{name: "already logged in", cookie: "raw", data: session.Data{UserID: 7, Username: "bob"}, resumer: &mockResumer{}, expectUserID: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: session.RememberCookieName, Value: tt.cookie})
			}
			req, _ = withSession(req, tt.data)

			var seen models.Viewer
			handler := RememberMeMiddleware(tt.resumer, newTestManager(), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = session.FromContext(r.Context()).Viewer()
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectUserID, seen.UserID)
			if tt.expectLookup {
				assert.Equal(t, tt.cookie, tt.resumer.token)
			} else {
				assert.Empty(t, tt.resumer.token)
			}

			cookies := w.Result().Cookies()
			if tt.expectCleared {
				require.Len(t, cookies, 1)
				assert.Equal(t, session.RememberCookieName, cookies[0].Name)
				assert.Equal(t, -1, cookies[0].MaxAge)
			} else {
				assert.Empty(t, cookies)
			}
		})
	}
}

type mockUserLoader struct {
	user *models.User
	err  error
	id   int
}

func (m *mockUserLoader) CurrentUser(ctx context.Context, userID int) (*models.User, error) {
	m.id = userID
	return m.user, m.err
}

func TestCurrentUserMiddleware(t *testing.T) {
	admin := session.Data{UserID: 9, Username: "root", Role: models.RoleAdmin}

	tests := []struct {
		name         string
		data         session.Data
		loader       *mockUserLoader
		expectViewer models.Viewer
		expectLookup bool
		expectDirty  bool
	}{
		{name: "anonymous is not looked up", loader: &mockUserLoader{}},
		{
			name:         "unchanged user",
			data:         admin,
			loader:       &mockUserLoader{user: &models.User{ID: 9, Username: "root", Role: models.RoleAdmin}},
			expectViewer: models.Viewer{UserID: 9, Username: "root", Role: models.RoleAdmin},
			expectLookup: true,
		},
		{
			name:         "demoted admin",
			data:         admin,
			loader:       &mockUserLoader{user: &models.User{ID: 9, Username: "root", Role: models.RoleUser}},
			expectViewer: models.Viewer{UserID: 9, Username: "root", Role: models.RoleUser},
			expectLookup: true,
			expectDirty:  true,
		},
		{
			name:         "deleted user is logged out",
			data:         admin,
			loader:       &mockUserLoader{err: fmt.Errorf("user %w", models.ErrNotFound)},
			expectLookup: true,
			expectDirty:  true,
		},
		{
			name:         "lookup failure keeps the session",
			data:         admin,
			loader:       &mockUserLoader{err: errors.New("db down")},
			expectViewer: models.Viewer{UserID: 9, Username: "root", Role: models.RoleAdmin},
			expectLookup: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, sess := withSession(httptest.NewRequest(http.MethodGet, "/", nil), tt.data)

			var seen models.Viewer
			handler := CurrentUserMiddleware(tt.loader, newTestManager(), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = session.FromContext(r.Context()).Viewer()
			}))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectViewer, seen)
			assert.Equal(t, tt.expectDirty, sess.Dirty())
			if tt.expectLookup {
				assert.Equal(t, tt.data.UserID, tt.loader.id)
			} else {
				assert.Zero(t, tt.loader.id)
			}
		})
	}
}

func TestCurrentUserMiddleware_DemotedAdminLosesAccess(t *testing.T) {
	loader := &mockUserLoader{user: &models.User{ID: 9, Username: "root", Role: models.RoleUser}}
	req, sess := withSession(httptest.NewRequest(http.MethodGet, "/admin/users", nil),
		session.Data{UserID: 9, Username: "root", Role: models.RoleAdmin})

	called := false
	chain := CurrentUserMiddleware(loader, newTestManager(), zap.NewNop())(RequireAdmin()(okHandler(&called)))

	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, models.RoleUser, sess.Viewer().Role)
}

func TestCurrentUserMiddleware_DeletedUserMustLogIn(t *testing.T) {
	loader := &mockUserLoader{err: fmt.Errorf("user %w", models.ErrNotFound)}
	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/posts/new", nil),
		session.Data{UserID: 4, Username: "gone", Role: models.RoleUser})

	called := false
	chain := CurrentUserMiddleware(loader, newTestManager(), zap.NewNop())(RequireLogin()(okHandler(&called)))

	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/posts/new"), w.Header().Get("Location"))
}
