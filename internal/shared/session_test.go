package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "ringpos_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTripKeepsToken(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetToken("tok-123")
	sess.SetUser("user-7")
	sess.Set("k", "v")

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "tok-123", loaded.Token())
	require.Equal(t, "user-7", loaded.User())
	require.Equal(t, "v", loaded.Get("k"))
}

func TestClearCredentialsPersists(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetToken("tok")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	sess.ClearCredentials()
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Empty(t, loaded.Token())
}

func TestDestroyRemovesRedisKey(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))
	require.True(t, mr.Exists("ringpos:session:"+sess.ID))

	sm.Destroy(sess)
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	require.False(t, mr.Exists("ringpos:session:"+sess.ID))
	require.Contains(t, res.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestCSRFVerify(t *testing.T) {
	sm, _ := newTestManager(t)
	csrf := NewCSRFManager("csrf")
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	require.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "nope"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
}

func TestTerminalFromContextDefaults(t *testing.T) {
	require.Equal(t, DefaultTerminal, TerminalFromContext(context.Background()))
	ctx := ContextWithTerminal(context.Background(), "caja-2")
	require.Equal(t, "caja-2", TerminalFromContext(ctx))
}

func TestErrNotAuthenticatedMapsToUnauthorized(t *testing.T) {
	require.ErrorIs(t, ErrNotAuthenticated, httpx.ErrUnauthorized)
	res := httptest.NewRecorder()
	httpx.RespondError(res, ErrNotAuthenticated)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}
