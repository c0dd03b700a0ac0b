package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "stockroom_session"

var ada = Identity{ID: "42", Name: "Ada", Email: "ada@example.com", Image: "https://example.com/a.png"}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, testCookie, time.Hour), mr
}

func requestWithCookie(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	}
	return req
}

func TestRedisStore_IssueAndVerify(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	token, issued, err := store.Issue(ctx, ada)
	require.NoError(t, err)
	assert.Len(t, token, sessionTokenBytes*2)
	assert.True(t, mr.Exists(sessionKeyPrefix+token))
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+token))

	got, err := store.Session(ctx, requestWithCookie(token))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "42", got.UserID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.WithinDuration(t, issued.Expires, got.Expires, time.Second)
}

func TestRedisStore_NoSession(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s, err := store.Session(ctx, requestWithCookie(""))
	assert.NoError(t, err)
	assert.Nil(t, s)

	s, err = store.Session(ctx, requestWithCookie("unknown"))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestRedisStore_ExpiredKey(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	token, _, err := store.Issue(ctx, ada)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	s, err := store.Session(ctx, requestWithCookie(token))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestRedisStore_ExpiredPayload(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	token, _, err := store.Issue(ctx, ada)
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	s, err := store.Session(ctx, requestWithCookie(token))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set(sessionKeyPrefix+"bad", "{not json"))

	s, err := store.Session(context.Background(), requestWithCookie("bad"))
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestRedisStore_Revoke(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	token, _, err := store.Issue(ctx, ada)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, token))
	assert.False(t, mr.Exists(sessionKeyPrefix+token))

	s, err := store.Session(ctx, requestWithCookie(token))
	assert.NoError(t, err)
	assert.Nil(t, s)

	assert.NoError(t, store.Revoke(ctx, ""))
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Session(context.Background(), requestWithCookie("whatever"))
	assert.Error(t, err)
}

func newJWTStore(t *testing.T) *JWTStore {
	t.Helper()
	store, err := NewJWTStore("a-very-long-test-secret-value", testCookie, time.Hour)
	require.NoError(t, err)
	return store
}

func TestJWTStore_IssueAndVerify(t *testing.T) {
	store := newJWTStore(t)
	ctx := context.Background()

	token, issued, err := store.Issue(ctx, ada)
	require.NoError(t, err)

	got, err := store.Session(ctx, requestWithCookie(token))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issued.UserID, got.UserID)
	assert.Equal(t, issued.Name, got.Name)
	assert.Equal(t, issued.Email, got.Email)
	assert.Equal(t, issued.Image, got.Image)
	assert.True(t, issued.Expires.Equal(got.Expires))
}

func TestJWTStore_BearerHeader(t *testing.T) {
	store := newJWTStore(t)
	token, _, err := store.Issue(context.Background(), ada)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	got, err := store.Session(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "42", got.UserID)
}

func TestJWTStore_RejectsBadTokens(t *testing.T) {
	store := newJWTStore(t)
	ctx := context.Background()
	token, _, err := store.Issue(ctx, ada)
	require.NoError(t, err)

	other, err := NewJWTStore("a-different-secret-entirely", testCookie, time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue(ctx, ada)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	for name, raw := range map[string]string{
		"garbage":  "not-a-token",
		"foreign":  foreign,
		"unsigned": unsigned,
		"tampered": tampered,
	} {
		t.Run(name, func(t *testing.T) {
			s, err := store.Session(ctx, requestWithCookie(raw))
			assert.NoError(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestJWTStore_Expired(t *testing.T) {
	store := newJWTStore(t)
	ctx := context.Background()
	token, _, err := store.Issue(ctx, ada)
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	s, err := store.Session(ctx, requestWithCookie(token))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewJWTStore_ShortSecret(t *testing.T) {
	_, err := NewJWTStore("short", testCookie, time.Hour)
	assert.Error(t, err)
}
