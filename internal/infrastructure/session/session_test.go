package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibliodesign/site/internal/infrastructure/config"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "test-secret-key-for-session-signing-32b",
		CookieName: "sid",
		TTL:        time.Hour,
	}
}

// requestWithCookies replays the cookies set on rec into a new request.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManager_GrantLoadDestroy(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, testConfig())

	rec := httptest.NewRecorder()
	sess, err := m.Grant(rec, httptest.NewRequest(http.MethodPost, "/admin/login", nil), "admin")
	require.NoError(t, err)
	assert.True(t, sess.Admin)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	loaded, err := m.Load(requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "admin", loaded.Username)

	out := httptest.NewRecorder()
	require.NoError(t, m.Destroy(out, requestWithCookies(rec)))
	assert.Equal(t, 0, store.Len())

	// the old token no longer resolves
	_, err = m.Load(requestWithCookies(rec))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_LoadWithoutCookie(t *testing.T) {
	m := NewManager(NewMemoryStore(), testConfig())

	_, err := m.Load(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RejectsForeignSignature(t *testing.T) {
	store := NewMemoryStore()
	issuer := NewManager(store, config.SessionConfig{Secret: "another-secret-another-secret-123", CookieName: "sid", TTL: time.Hour})
	verifier := NewManager(store, testConfig())

	rec := httptest.NewRecorder()
	_, err := issuer.Grant(rec, httptest.NewRequest(http.MethodPost, "/", nil), "admin")
	require.NoError(t, err)

	_, err = verifier.Load(requestWithCookies(rec))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RejectsGarbageCookie(t *testing.T) {
	m := NewManager(NewMemoryStore(), testConfig())

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "isAdmin=true"})

	_, err := m.Load(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_GrantRotatesSessionID(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, testConfig())

	first := httptest.NewRecorder()
	s1, err := m.Grant(first, httptest.NewRequest(http.MethodPost, "/", nil), "admin")
	require.NoError(t, err)

	second := httptest.NewRecorder()
	req := requestWithCookies(first)
	s2, err := m.Grant(second, req, "admin")
	require.NoError(t, err)

	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &Session{ID: "a", Admin: true}, time.Minute))

	_, err := store.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.Set(ctx, &Session{ID: "abc", Username: "admin", Admin: true}, time.Minute))

	sess, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
	assert.True(t, sess.Admin)
	assert.True(t, mr.Exists("session:abc"))

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Set(ctx, &Session{ID: "def", Admin: true}, time.Minute))
	require.NoError(t, store.Delete(ctx, "def"))
	_, err = store.Get(ctx, "def")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_WithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	m := NewManager(NewRedisStore(client), testConfig())

	rec := httptest.NewRecorder()
	_, err := m.Grant(rec, httptest.NewRequest(http.MethodPost, "/", nil), "admin")
	require.NoError(t, err)

	sess, err := m.Load(requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
}
