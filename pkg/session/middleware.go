package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nextgate-hq/relay/pkg/config"
	"nextgate-hq/relay/pkg/kvstore"
	"nextgate-hq/relay/pkg/telemetry/logging"
)

// Manager binds sessions to requests through a signed cookie.
//
// Sessions roll: every response for a stored session re-issues the cookie
// and renews the TTL in the store. New sessions are stored only when a
// handler modifies them. Concurrent requests on one session are
// last-writer-wins.
type Manager struct {
	store      *Store
	cookieName string
	codec      *cookieCodec
	secure     bool
}

// NewManager creates a Manager.
func NewManager(store *Store, cfg config.SessionConfig) *Manager {
	return &Manager{
		store:      store,
		cookieName: cfg.CookieName,
		codec:      newCookieCodec(cfg.CookieName, []byte(cfg.Secret), store.TTL()),
		secure:     cfg.Secure,
	}
}

// Store returns the underlying session store.
func (m *Manager) Store() *Store {
	return m.store
}

// Middleware loads the session for each request, exposes it through
// FromContext, and writes it back after the handler returns.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, hadCookie := m.load(ctx, r)

		if u := sess.User(); u != nil {
			ctx = logging.WithUser(ctx, u.ID)
			if u.TenantID != "" {
				ctx = logging.WithTenant(ctx, u.TenantID)
			}
			if p := logging.PrincipalFrom(ctx); p != nil {
				p.Set(u.ID, u.TenantID)
			}
		}
		ctx = NewContext(ctx, sess)

		sw := &responseWriter{ResponseWriter: w, m: m, sess: sess, hadCookie: hadCookie}
		next.ServeHTTP(sw, r.WithContext(ctx))
		sw.writeCookie()

		m.commit(ctx, sess)
	})
}

func (m *Manager) load(ctx context.Context, r *http.Request) (*Session, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return m.store.New(), false
	}

	id, ok := m.codec.decode(c.Value)
	if !ok {
		slog.DebugContext(ctx, "session cookie signature mismatch")
		return m.store.New(), true
	}

	sess, err := m.store.Load(ctx, id)
	switch {
	case err == nil:
		return sess, true
	case errors.Is(err, kvstore.ErrNotFound):
		slog.DebugContext(ctx, "session expired or unknown")
	case errors.Is(err, kvstore.ErrUnavailable):
		slog.WarnContext(ctx, "session store unavailable, continuing without session", "error", err)
	default:
		slog.WarnContext(ctx, "session unreadable", "error", err)
	}
	return m.store.New(), true
}

func (m *Manager) commit(ctx context.Context, sess *Session) {
	sess.mu.Lock()
	destroyed, isNew, modified := sess.destroyed, sess.isNew, sess.modified
	sess.mu.Unlock()

	var err error
	switch {
	case destroyed:
		return
	case modified:
		err = m.store.Save(ctx, sess)
	case !isNew:
		err = m.store.Touch(ctx, sess.ID)
	default:
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "session write failed", "error", err)
	}
}

func (m *Manager) cookie(sess *Session) (*http.Cookie, error) {
	value, err := m.codec.encode(sess.ID)
	if err != nil {
		return nil, err
	}
	ttl := m.store.TTL()
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func (m *Manager) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// LogoutHandler destroys the current session and clears its cookie.
func (m *Manager) LogoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sess, ok := FromContext(ctx); ok && !sess.IsNew() {
			if err := m.store.Destroy(ctx, sess); err != nil {
				slog.WarnContext(ctx, "session destroy failed", "error", err)
			} else {
				slog.InfoContext(ctx, "session destroyed")
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
}

// responseWriter sets the session cookie just before the headers are sent.
type responseWriter struct {
	http.ResponseWriter
	m         *Manager
	sess      *Session
	hadCookie bool
	once      sync.Once
}

func (w *responseWriter) writeCookie() {
	w.once.Do(func() {
		switch {
		case w.sess.Destroyed():
			if w.hadCookie {
				http.SetCookie(w.ResponseWriter, w.m.expiredCookie())
			}
		case w.sess.persistent():
			c, err := w.m.cookie(w.sess)
			if err != nil {
				slog.Warn("session cookie encode failed", "error", err)
				return
			}
			http.SetCookie(w.ResponseWriter, c)
		}
	})
}

func (w *responseWriter) WriteHeader(code int) {
	w.writeCookie()
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.writeCookie()
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Flush() {
	w.writeCookie()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
