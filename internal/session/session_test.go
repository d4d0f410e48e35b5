package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/stockroom/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, ttl time.Duration) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewManager(NewRedisStore(client), config.AuthConfig{
		SessionCookieName: "stockroom_session",
		SessionTTL:        ttl,
	}), mr
}

// requestWith replays the cookies a previous response set.
func requestWith(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	alice := Session{UserID: 7, DisplayName: "alice", RoleName: "admin"}

	t.Run("Should issue a session readable from the cookie", func(t *testing.T) {
		m, mr := newManager(t, 0)
		rec := httptest.NewRecorder()

		require.NoError(t, m.Issue(ctx, rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil), alice))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
		assert.True(t, mr.Exists(keyPrefix+cookies[0].Value))
		assert.Equal(t, time.Duration(0), mr.TTL(keyPrefix+cookies[0].Value))

		got, err := m.Current(ctx, requestWith(rec))
		require.NoError(t, err)
		assert.Equal(t, alice, *got)
	})

	t.Run("Should discard the previous session id on re-login", func(t *testing.T) {
		m, mr := newManager(t, 0)
		first := httptest.NewRecorder()
		require.NoError(t, m.Issue(ctx, first, httptest.NewRequest(http.MethodPost, "/", nil), alice))
		oldID := first.Result().Cookies()[0].Value

		second := httptest.NewRecorder()
		require.NoError(t, m.Issue(ctx, second, requestWith(first), alice))
		newID := second.Result().Cookies()[0].Value

		assert.NotEqual(t, oldID, newID)
		assert.False(t, mr.Exists(keyPrefix+oldID))
		assert.True(t, mr.Exists(keyPrefix+newID))
	})

	t.Run("Should report no session for anonymous or unknown ids", func(t *testing.T) {
		m, _ := newManager(t, 0)

		_, err := m.Current(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, err, ErrNoActiveSession)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "stockroom_session", Value: "forged"})
		_, err = m.Current(ctx, req)
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("Should expire sessions when a ttl is configured", func(t *testing.T) {
		m, mr := newManager(t, time.Hour)
		rec := httptest.NewRecorder()
		require.NoError(t, m.Issue(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), alice))

		mr.FastForward(2 * time.Hour)

		_, err := m.Current(ctx, requestWith(rec))
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("Should clear the session and expire the cookie", func(t *testing.T) {
		m, mr := newManager(t, 0)
		login := httptest.NewRecorder()
		require.NoError(t, m.Issue(ctx, login, httptest.NewRequest(http.MethodPost, "/", nil), alice))
		id := login.Result().Cookies()[0].Value

		logout := httptest.NewRecorder()
		require.NoError(t, m.Clear(ctx, logout, requestWith(login)))

		assert.False(t, mr.Exists(keyPrefix+id))
		cookies := logout.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Less(t, cookies[0].MaxAge, 0)

		assert.NoError(t, m.Clear(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil)))
	})

	t.Run("Should deliver a flash message exactly once", func(t *testing.T) {
		m, _ := newManager(t, 0)
		rec := httptest.NewRecorder()
		m.SetFlash(rec, "Please sign in to continue.")

		pop := httptest.NewRecorder()
		assert.Equal(t, "Please sign in to continue.", m.PopFlash(pop, requestWith(rec)))

		assert.Equal(t, "", m.PopFlash(httptest.NewRecorder(), requestWith(pop)))
	})
}
