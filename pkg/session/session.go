package session

import (
	"context"
	"sync"
)

// User is the signed-in identity attached to a session by the identity
// provider.
type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Session is per-client state persisted in the store. Methods are safe for
// concurrent use by the handlers serving one request.
type Session struct {
	ID string

	mu        sync.Mutex
	values    map[string]any
	user      *User
	isNew     bool
	modified  bool
	destroyed bool
}

// record is the stored JSON form of a session.
type record struct {
	Values map[string]any `json:"values,omitempty"`
	User   *User          `json:"user,omitempty"`
}

func newSession(id string) *Session {
	return &Session{ID: id, values: make(map[string]any), isNew: true}
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and marks the session modified.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.modified = true
}

// Delete removes key and marks the session modified.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
}

// User returns the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser attaches a user to the session. Passing nil signs the user out.
func (s *Session) SetUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
	} else {
		cp := *u
		s.user = &cp
	}
	s.modified = true
}

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// Destroyed reports whether the session was destroyed by this request.
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// persistent reports whether the session exists in the store or must be
// written to it. New sessions are only written once modified.
func (s *Session) persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.destroyed && (!s.isNew || s.modified)
}

func (s *Session) snapshot() record {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]any, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return record{Values: values, User: s.user}
}

type contextKey string

const sessionKey contextKey = "session"

// NewContext returns a context carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session attached by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}
