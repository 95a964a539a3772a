package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := New(Config{
		SecretKey:    "test-secret",
		Algorithm:    "HS256",
		TTL:          30 * time.Minute,
		DemoUsername: "admin",
		DemoPassword: "password123",
	})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing secret", cfg: Config{Algorithm: "HS256", TTL: time.Minute}},
		{name: "asymmetric algorithm", cfg: Config{SecretKey: "k", Algorithm: "RS256", TTL: time.Minute}},
		{name: "unknown algorithm", cfg: Config{SecretKey: "k", Algorithm: "nope", TTL: time.Minute}},
		{name: "zero ttl", cfg: Config{SecretKey: "k", Algorithm: "HS512"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	s := newTestService(t)

	u, err := s.Authenticate("admin", "password123")
	require.NoError(t, err)
	assert.Equal(t, &User{Username: "admin", Email: "admin@example.com"}, u)

	_, err = s.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("root", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueAndVerifyToken(t *testing.T) {
	s := newTestService(t)
	u, err := s.Authenticate("admin", "password123")
	require.NoError(t, err)

	tok, err := s.IssueToken(u)
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 1800, tok.ExpiresIn)

	got, err := s.VerifyToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestVerifyToken_Rejects(t *testing.T) {
	s := newTestService(t)
	u := &User{Username: "admin", Email: "admin@example.com"}

	expired := newTestService(t)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.IssueToken(u)
	require.NoError(t, err)

	other, err := New(Config{SecretKey: "other-secret", Algorithm: "HS256", TTL: time.Minute, DemoUsername: "admin"})
	require.NoError(t, err)
	forged, err := other.IssueToken(u)
	require.NoError(t, err)

	hs512, err := New(Config{SecretKey: "test-secret", Algorithm: "HS512", TTL: time.Minute})
	require.NoError(t, err)
	wrongAlg, err := hs512.IssueToken(u)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "admin",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    old.AccessToken,
		"forged":     forged.AccessToken,
		"algorithm":  wrongAlg.AccessToken,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"garbage":    "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.VerifyToken(token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}
