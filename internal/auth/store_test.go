package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv(envToken, "")

	store, err := NewStore(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, err)
	return store
}

func TestLoginRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Login("  tok-abc123  "))

	token, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, "tok-abc123", token)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	store := newTestStore(t)
	require.Error(t, store.Login("   "))
}

func TestTokenWithoutCredential(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Token()
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestTokenEnvOverride(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Login("stored-token"))

	t.Setenv(envToken, "env-token")
	token, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, "env-token", token)
}

func TestLogout(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Login("tok"))

	removed, err := store.Logout()
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.Logout()
	require.NoError(t, err)
	require.False(t, removed)

	_, err = store.Token()
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLoginReplacesCredential(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Login("first"))
	require.NoError(t, store.Login("second"))

	token, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, "second", token)
}

func TestNewStoreDefaultPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	store, err := NewStore("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(os.Getenv("XDG_STATE_HOME"), "meetscribe", "token"), store.Path())
}

func TestTokenExpiryFromJWT(t *testing.T) {
	expires := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	claims := &jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expires),
		Subject:   "user-1",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	require.True(t, got.Equal(expires), "expiry %v != %v", got, expires)
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	_, ok := TokenExpiry("plain-api-key")
	require.False(t, ok)
}

func TestTokenExpiryJWTWithoutExp(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, ok := TokenExpiry(signed)
	require.False(t, ok)
}
