package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenGenerator signs and validates the session cookie.
// The cookie carries only the session id; everything else lives server-side.
type SessionTokenGenerator struct {
	secret string
	expiry time.Duration
}

// NewSessionTokenGenerator creates a new session token generator
func NewSessionTokenGenerator(secret string, expiry time.Duration) *SessionTokenGenerator {
	return &SessionTokenGenerator{
		secret: secret,
		expiry: expiry,
	}
}

// Expiry returns the lifetime of generated tokens
func (tg *SessionTokenGenerator) Expiry() time.Duration {
	return tg.expiry
}

// GenerateToken creates a signed token carrying the session id in the "sid" claim
func (tg *SessionTokenGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sid":  sessionID,
		"exp":  now.Add(tg.expiry).Unix(),
		"iat":  now.Unix(),
		"type": "session",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tg.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a session token and returns the session id
func (tg *SessionTokenGenerator) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tg.secret), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "session" {
		return "", fmt.Errorf("token is not a session token")
	}

	sessionID, ok := claims["sid"].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("sid not found in token")
	}

	return sessionID, nil
}

// GenerateRandomToken returns n random bytes encoded as hex.
// Used for CSRF, remember-me and password reset tokens.
func GenerateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 digest stored in place of a raw token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
