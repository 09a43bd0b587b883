package services

import (
	"dm-chat/auth"
	"dm-chat/contract"
	"dm-chat/domain"
	apperrors "dm-chat/errors"
	"errors"
	"log/slog"
)

// AuthService is thin glue around the external collaborators the
// messaging core treats as black boxes: credential storage, password
// hashing and token issuance.
type AuthService struct {
	users  contract.UserRepository
	tokens *auth.TokenManager
	log    *slog.Logger
}

func NewAuthService(users contract.UserRepository, tokens *auth.TokenManager, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (s *AuthService) Register(req auth.RegisterRequest) (domain.User, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}
	return s.users.Create(domain.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	})
}

// Login verifies credentials and issues an access and a refresh token.
// Unknown email and wrong password produce the same error so the
// response never confirms whether an account exists.
func (s *AuthService) Login(req auth.LoginRequest) (TokenPair, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return TokenPair{}, apperrors.ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(req.Email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return TokenPair{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return TokenPair{}, apperrors.ErrInvalidCredentials
	}

	access, err := s.tokens.Generate(user.ID, auth.TokenTypeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.Generate(user.ID, auth.TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	s.log.Info("user logged in", "user_id", user.ID)
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token.
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	claims, err := s.tokens.Validate(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return s.tokens.Generate(claims.UserID, auth.TokenTypeAccess)
}

// ListUsers returns everyone except the caller.
func (s *AuthService) ListUsers(callerID int64) ([]domain.User, error) {
	return s.users.List(callerID)
}
