package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/podboard/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newTestTokens(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	s, err := NewTokenService(testSecret, opts...)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := NewTokenService(nil)
	require.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	s := newTestTokens(t)
	tok, err := s.Issue(42, "root", models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, strings.Split(tok, "."), 3)

	claims, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "root", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, TokenTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, Principal{UserID: 42, Username: "root", Role: models.RoleAdmin}, claims.Principal())
}

func TestVerify_ExpiredPayload(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-TokenTTL - time.Minute)
	claims := Claims{
		UserID:   1,
		Username: "root",
		Role:     models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(TokenTTL)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = newTestTokens(t).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := func() time.Time { return now }
	s := newTestTokens(t, WithClock(clock))

	tok, err := s.Issue(7, "alice", models.RoleUser)
	require.NoError(t, err)

	_, err = s.Verify(tok)
	require.NoError(t, err)

	now = now.Add(TokenTTL + time.Second)
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_TamperedSignature(t *testing.T) {
	t.Parallel()

	s := newTestTokens(t)
	tok, err := s.Issue(1, "root", models.RoleAdmin)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	forged := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = s.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherFailures(t *testing.T) {
	t.Parallel()

	s := newTestTokens(t)

	other, err := NewTokenService([]byte("another-secret"))
	require.NoError(t, err)
	foreign, err := other.Issue(1, "root", models.RoleAdmin)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1, Username: "root", Role: models.RoleAdmin,
	}).SignedString(testSecret)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1, Username: "root", Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(testSecret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1, Username: "root", Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "garbage",
		"empty":        "",
		"three parts":  "not.a.jwt",
		"wrong secret": foreign,
		"no expiry":    noExp,
		"unknown role": badRole,
		"alg none":     unsigned,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
