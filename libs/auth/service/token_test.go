package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "b8a3c2267dc85f855dea9b46b452bf20"

func TestNewSessionTokenGenerator(t *testing.T) {
	tg := NewSessionTokenGenerator("test-secret-key", 24*time.Hour)

	assert.NotNil(t, tg)
	assert.Equal(t, "test-secret-key", tg.secret)
	assert.Equal(t, 24*time.Hour, tg.Expiry())
}

func TestSessionTokenGenerator_GenerateToken(t *testing.T) {
	tg := NewSessionTokenGenerator(testSecret, time.Hour)

	t.Run("success", func(t *testing.T) {
		token, err := tg.GenerateToken("f3a1c9a0-session")
		require.NoError(t, err)
		assert.Len(t, strings.Split(token, "."), 3)

		sid, err := tg.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "f3a1c9a0-session", sid)
	})

	t.Run("empty session id", func(t *testing.T) {
		_, err := tg.GenerateToken("")
		assert.Error(t, err)
	})
}

func TestSessionTokenGenerator_ValidateToken(t *testing.T) {
	tg := NewSessionTokenGenerator(testSecret, time.Hour)

	signed := func(t *testing.T, claims jwt.MapClaims, secret string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		s, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name          string
		token         func(t *testing.T) string
		errorContains string
	}{
		{
			name:          "empty string",
			token:         func(t *testing.T) string { return "" },
			errorContains: "failed to parse token",
		},
		{
			name:          "malformed",
			token:         func(t *testing.T) string { return "header.payload" },
			errorContains: "failed to parse token",
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"sid": "abc", "type": "session", "exp": time.Now().Add(time.Hour).Unix()}, "other-secret")
			},
			errorContains: "failed to parse token",
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"sid": "abc", "type": "session", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
			},
			errorContains: "failed to parse token",
		},
		{
			name: "wrong type",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"sid": "abc", "type": "access", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)
			},
			errorContains: "not a session token",
		},
		{
			name: "missing sid",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"type": "session", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)
			},
			errorContains: "sid not found",
		},
		{
			name: "none signing method",
			token: func(t *testing.T) string {
				token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "abc", "type": "session"})
				s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			},
			errorContains: "unexpected signing method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tg.ValidateToken(tt.token(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestGenerateRandomToken(t *testing.T) {
	a, err := GenerateRandomToken(32)
	require.NoError(t, err)
	b, err := GenerateRandomToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashToken("abc"))
}
