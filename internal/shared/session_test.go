package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "billdesk_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTripKeepsUserAndRole(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("user-1", RoleAccountant)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))
	assert.True(t, mr.Exists("billdesk:session:"+sess.ID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "user-1", loaded.User())
	assert.Equal(t, RoleAccountant, loaded.Role())

	reqCtx := ContextWithSession(ctx, loaded)
	assert.Equal(t, "user-1", CurrentUserID(reqCtx))
	assert.Equal(t, RoleAccountant, CurrentRole(reqCtx))
}

func TestAnonymousSessionIsNotPersisted(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))
	assert.Empty(t, mr.Keys())
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, Role(""), CurrentRole(ContextWithSession(ctx, sess)))
}

func TestRenewAndDestroy(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("user-2", RoleAdmin)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))
	oldID := sess.ID

	require.NoError(t, sm.Renew(ctx, sess))
	assert.NotEqual(t, oldID, sess.ID)
	assert.False(t, mr.Exists("billdesk:session:"+oldID))
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))
	assert.True(t, mr.Exists("billdesk:session:"+sess.ID))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))
	assert.False(t, mr.Exists("billdesk:session:"+sess.ID))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestCSRFTokens(t *testing.T) {
	sm, _ := newTestSessions(t)
	csrf := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	req := httptest.NewRequest(http.MethodPost, "/clients", nil)
	req = req.WithContext(ContextWithSession(req.Context(), sess))
	require.ErrorIs(t, csrf.VerifyRequest(req), ErrCSRFTokenMissing)
	req.Header.Set(CSRFHeader, "wrong")
	require.ErrorIs(t, csrf.VerifyRequest(req), ErrCSRFTokenMismatch)
	req.Header.Set(CSRFHeader, token)
	require.NoError(t, csrf.VerifyRequest(req))

	rotated, err := csrf.RotateToken(ctx, sess)
	require.NoError(t, err)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, token), ErrCSRFTokenMismatch)
	require.NoError(t, csrf.VerifyToken(ctx, sess, rotated))
}
