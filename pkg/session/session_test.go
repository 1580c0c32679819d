package session

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedHS256(t, jwt.MapClaims{
		"sub":   "42",
		"name":  "Alice",
		"email": "alice@example.com",
		"exp":   exp.Unix(),
	})

	s, err := FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", s.User.ID)
	assert.Equal(t, "Alice", s.User.Name)
	assert.Equal(t, "alice@example.com", s.User.Email)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.False(t, s.IsExpired(0))
	assert.True(t, s.IsExpired(2*time.Hour))
}

func TestNew_OpaqueToken(t *testing.T) {
	s := New("not-a-jwt", "https://gw.example.com")
	assert.Equal(t, "not-a-jwt", s.Token)
	assert.Equal(t, "https://gw.example.com", s.Server)
	assert.False(t, s.IsExpired(time.Hour), "sessions without expiry never expire locally")
}

func TestBearerToken_NilSession(t *testing.T) {
	var s *Session
	assert.Equal(t, "", s.BearerToken())
}

func TestFileStore_PlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	store := NewFileStore(path, "")

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	original := &Session{
		Token:     "tok",
		User:      User{ID: "1", Name: "Bob"},
		ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
		Server:    "http://localhost:8080",
	}
	require.NoError(t, store.Save(original))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, original.Token, loaded.Token)
	assert.Equal(t, original.User, loaded.User)
	assert.True(t, original.ExpiresAt.Equal(loaded.ExpiresAt))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_Sealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	store := NewFileStore(path, "correct horse")
	require.NoError(t, store.Save(&Session{Token: "sealed-token"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sealed-token")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "sealed-token", loaded.Token)

	_, err = NewFileStore(path, "wrong").Load()
	assert.Error(t, err)

	_, err = NewFileStore(path, "").Load()
	assert.Error(t, err)
}

func TestVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const issuer = "https://issuer.example.com"
	v := &Verifier{verifier: oidc.NewVerifier(issuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		&oidc.Config{ClientID: "explorer"})}

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   issuer,
		"aud":   "explorer",
		"sub":   "user-7",
		"email": "u7@example.com",
		"exp":   exp.Unix(),
		"iat":   time.Now().Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	s := &Session{Token: token}
	require.NoError(t, v.Verify(context.Background(), s))
	assert.Equal(t, "user-7", s.User.ID)
	assert.Equal(t, "u7@example.com", s.User.Email)
	assert.True(t, s.ExpiresAt.Equal(exp))

	bad := &Session{Token: signedHS256(t, jwt.MapClaims{"iss": issuer, "aud": "explorer"})}
	assert.Error(t, v.Verify(context.Background(), bad))

	var disabled *Verifier
	assert.NoError(t, disabled.Verify(context.Background(), bad))
}
