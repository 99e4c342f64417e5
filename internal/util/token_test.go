package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		admin    bool
	}{
		{name: "admin", username: "admin", admin: true},
		{name: "user", username: "alice", admin: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.GenerateToken(tt.username, tt.admin)
			require.NoError(t, err)

			claims, err := m.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.username, claims.Username)
			assert.Equal(t, tt.admin, claims.Admin)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenManager("other-secret", time.Hour)
	require.NoError(t, err)
	expired, err := NewTokenManager("test-secret", -time.Minute)
	require.NoError(t, err)

	foreign, err := other.GenerateToken("alice", true)
	require.NoError(t, err)
	stale, err := expired.GenerateToken("alice", false)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "alice", Admin: true}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong_secret", token: foreign},
		{name: "expired", token: stale},
		{name: "alg_none", token: unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRevokeToken(t *testing.T) {
	m, err := NewTokenManager("", time.Hour)
	require.NoError(t, err)

	token, err := m.GenerateToken("alice", false)
	require.NoError(t, err)
	claims, err := m.ValidateToken(token)
	require.NoError(t, err)

	m.RevokeToken(claims)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	fresh, err := m.GenerateToken("alice", false)
	require.NoError(t, err)
	_, err = m.ValidateToken(fresh)
	assert.NoError(t, err)
}
