package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/teampulse/internal/cache/memory"
	sessiondto "github.com/dropDatabas3/teampulse/internal/http/dto/session"
	"github.com/dropDatabas3/teampulse/internal/http/services/session"
)

func newSessions() session.Service {
	return session.New(session.Deps{
		Store:  memory.New(time.Hour),
		Cookie: sessiondto.CookieConfig{Name: "tp_session", TTL: time.Hour},
	})
}

func TestSessionLoaderExposesPrincipal(t *testing.T) {
	sessions := newSessions()
	sid, err := sessions.Commit(context.Background(), "u1", "t1", "acme", "")
	require.NoError(t, err)

	var got *Principal
	h := SessionLoader(sessions)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = PrincipalFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessions.Cookie(sid))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.True(t, got.Authenticated())
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "t1", got.TenantID)
	assert.Equal(t, "acme", got.TenantSlug)
	assert.Equal(t, sid, got.SessionID)
}

func TestSessionLoaderAnonymousWithoutCookie(t *testing.T) {
	sessions := newSessions()

	var got *Principal
	h := SessionLoader(sessions)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = PrincipalFrom(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Nil(t, got)
	assert.False(t, got.Authenticated())
}

func TestSessionLoaderAnonymousWithStaleCookie(t *testing.T) {
	sessions := newSessions()

	var got *Principal
	h := SessionLoader(sessions)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = PrincipalFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "tp_session", Value: "stale"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, got.Authenticated())
}
