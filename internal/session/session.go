// Package session keeps per-browser state (user, CSRF token, flash messages) in Redis
// behind a signed cookie.
package session

import (
	"context"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/libs/auth/service"
)

// csrfTokenBytes is the entropy of a CSRF token
const csrfTokenBytes = 32

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-time notification shown on the next rendered page
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Data is the state persisted for a session
type Data struct {
	UserID    int         `json:"user_id,omitempty"`
	Username  string      `json:"username,omitempty"`
	Role      models.Role `json:"role,omitempty"`
	CSRFToken string      `json:"csrf_token,omitempty"`
	Flashes   []Flash     `json:"flashes,omitempty"`
}

// Session is the state of one browser during a request.
// It is not safe for concurrent use; each request owns its session.
type Session struct {
	id    string
	data  Data
	dirty bool
	// previous id to delete from the store after a rotation
	staleID string
}

// NewSession creates a session with the given id and data, used by the manager and in tests
func NewSession(id string, data Data) *Session {
	return &Session{id: id, data: data}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Data returns a copy of the session data
func (s *Session) Data() Data {
	return s.data
}

// Dirty reports whether the session changed during the request
func (s *Session) Dirty() bool {
	return s.dirty
}

// Viewer returns the user of the session; anonymous when nobody is logged in
func (s *Session) Viewer() models.Viewer {
	return models.Viewer{
		UserID:   s.data.UserID,
		Username: s.data.Username,
		Role:     s.data.Role,
	}
}

// CSRFToken returns the token of the session, creating it on first use
func (s *Session) CSRFToken() string {
	if s.data.CSRFToken == "" {
		token, err := service.GenerateRandomToken(csrfTokenBytes)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		s.data.CSRFToken = token
		s.dirty = true
	}
	return s.data.CSRFToken
}

// AddFlash queues a message for the next rendered page
func (s *Session) AddFlash(kind, message string) {
	s.data.Flashes = append(s.data.Flashes, Flash{Kind: kind, Message: message})
	s.dirty = true
}

// Flashes returns and clears the queued messages
func (s *Session) Flashes() []Flash {
	flashes := s.data.Flashes
	if len(flashes) > 0 {
		s.data.Flashes = nil
		s.dirty = true
	}
	return flashes
}

// setUser stores the logged-in user under a fresh id and CSRF token
func (s *Session) setUser(newID string, user *models.User) {
	if s.staleID == "" {
		s.staleID = s.id
	}
	s.id = newID
	s.data.UserID = user.ID
	s.data.Username = user.Username
	s.data.Role = user.Role
	s.data.CSRFToken = ""
	s.dirty = true
}

// syncUser copies a changed username or role into the session, keeping its id
func (s *Session) syncUser(user *models.User) {
	if s.data.Username == user.Username && s.data.Role == user.Role {
		return
	}
	s.data.Username = user.Username
	s.data.Role = user.Role
	s.dirty = true
}

// reset turns the session into a fresh anonymous one under a new id
func (s *Session) reset(newID string) {
	if s.staleID == "" {
		s.staleID = s.id
	}
	s.id = newID
	s.data = Data{}
	s.dirty = true
}

type contextKey struct{}

// NewContext returns a context carrying the session
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session of the request.
// Without one, a detached anonymous session is returned so callers never see nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}
