package util

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const tokenIssuer = "license-binding-server"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims carried by a session token.
type Claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// TokenManager signs and checks HS256 session tokens and remembers revoked token ids until they expire.
type TokenManager struct {
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenManager builds a manager. An empty secret is replaced by a random
// one, so tokens do not survive a restart.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &TokenManager{
		secret:  key,
		ttl:     ttl,
		revoked: make(map[string]time.Time),
	}, nil
}

func (m *TokenManager) TTL() time.Duration { return m.ttl }

func (m *TokenManager) GenerateToken(username string, admin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) ValidateToken(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	m.mu.Lock()
	_, revoked := m.revoked[claims.ID]
	m.mu.Unlock()
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// RevokeToken rejects the token id from now until the token would have expired.
func (m *TokenManager) RevokeToken(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	expiresAt := time.Now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, id)
		}
	}
	m.revoked[claims.ID] = expiresAt
}
