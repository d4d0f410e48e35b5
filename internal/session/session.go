// Package session keeps authenticated identities server-side.
//
// The browser only holds an opaque random id in an HttpOnly cookie. The
// identity itself lives in a Store (Redis in production) under that id.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/stockroom/internal/config"
	"github.com/google/uuid"
)

// ErrNoActiveSession is returned when the request carries no valid session.
var ErrNoActiveSession = errors.New("no active session")

// Session is the identity bound to an authenticated browser.
type Session struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	RoleName    string `json:"role_name"`
}

// Store persists sessions by id. Get returns ErrNoActiveSession for an
// unknown or expired id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, s Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

const flashCookieSuffix = "_flash"

// Manager issues, reads and clears sessions and carries one-shot flash
// messages across a redirect.
type Manager struct {
	store      Store
	cookieName string
	secure     bool
	ttl        time.Duration
}

func NewManager(store Store, cfg config.AuthConfig) *Manager {
	return &Manager{
		store:      store,
		cookieName: cfg.SessionCookieName,
		secure:     cfg.SecureCookie,
		ttl:        cfg.SessionTTL,
	}
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Issue stores s under a fresh random id and points the session cookie at
// it. Any session the request already carried is discarded first.
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, r *http.Request, s Session) error {
	if previous, err := r.Cookie(m.cookieName); err == nil && previous.Value != "" {
		if err := m.store.Delete(ctx, previous.Value); err != nil {
			return fmt.Errorf("discarding previous session: %w", err)
		}
	}

	id := uuid.NewString()
	if err := m.store.Save(ctx, id, s, m.ttl); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	maxAge := 0
	if m.ttl > 0 {
		maxAge = int(m.ttl.Seconds())
	}
	http.SetCookie(w, m.cookie(id, maxAge))
	return nil
}

// Current returns the session bound to the request.
func (m *Manager) Current(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoActiveSession
	}
	return m.store.Get(ctx, c.Value)
}

// Clear deletes the stored session and expires the cookie. Clearing an
// anonymous request is a no-op.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	if err := m.store.Delete(ctx, c.Value); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	http.SetCookie(w, m.cookie("", -1))
	return nil
}

// SetFlash stores a message to be shown once on the next page.
func (m *Manager) SetFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName + flashCookieSuffix,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending flash message, if any, and expires it.
func (m *Manager) PopFlash(w http.ResponseWriter, r *http.Request) string {
	name := m.cookieName + flashCookieSuffix
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: name, Path: "/", MaxAge: -1, HttpOnly: true, Secure: m.secure})

	message, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(message)
}
