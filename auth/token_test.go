package auth

import (
	apperrors "dm-chat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenManager_Roundtrip(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("secret", 15*time.Minute, 24*time.Hour)

	token, err := manager.Generate(42, TokenTypeAccess)
	req.NoError(err)

	claims, err := manager.Validate(token, TokenTypeAccess)
	req.NoError(err)
	req.Equal(int64(42), claims.UserID)
	req.Equal(TokenTypeAccess, claims.TokenType)
}

func TestTokenManager_Rejects_Wrong_Type(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("secret", 15*time.Minute, 24*time.Hour)

	refresh, err := manager.Generate(42, TokenTypeRefresh)
	req.NoError(err)

	_, err = manager.Validate(refresh, TokenTypeAccess)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}

func TestTokenManager_Rejects_Foreign_Signature(t *testing.T) {
	req := require.New(t)
	ours := NewTokenManager("secret", 15*time.Minute, 24*time.Hour)
	theirs := NewTokenManager("other-secret", 15*time.Minute, 24*time.Hour)

	token, err := theirs.Generate(42, TokenTypeAccess)
	req.NoError(err)

	_, err = ours.Validate(token, TokenTypeAccess)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}

func TestTokenManager_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("secret", -time.Minute, 24*time.Hour)

	token, err := manager.Generate(42, TokenTypeAccess)
	req.NoError(err)

	_, err = manager.Validate(token, TokenTypeAccess)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}

func TestTokenManager_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("secret", 15*time.Minute, 24*time.Hour)

	_, err := manager.Validate("", TokenTypeAccess)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
	_, err = manager.Validate("not.a.token", TokenTypeAccess)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}
