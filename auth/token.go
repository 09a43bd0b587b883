package auth

import (
	apperrors "dm-chat/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	issuer = "dm-chat"
)

// Claims defines the structure of the data stored inside the JWT.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the bearer tokens used on both the
// HTTP middleware and the websocket handshake. The secret comes from
// configuration, never from source.
type TokenManager struct {
	secret          []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
}

func NewTokenManager(secret string, accessDuration, refreshDuration time.Duration) *TokenManager {
	return &TokenManager{
		secret:          []byte(secret),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// Generate creates a signed token of the given type for a user, using
// the HS256 algorithm (HMAC with SHA256).
func (m *TokenManager) Generate(userID int64, tokenType string) (string, error) {
	duration := m.accessDuration
	if tokenType == TokenTypeRefresh {
		duration = m.refreshDuration
	}

	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a token string, checks signature and expiration, and
// rejects tokens of the wrong type (a refresh token can never pass as
// an access token, or the other way round).
func (m *TokenManager) Validate(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != expectedType {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
