// Package auth implements registration, login, and token refresh on top of
// the users module and the shared token manager.
package auth

import (
	"context"
	"errors"
	"fmt"

	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/users"
)

// ErrAuthentication covers every credential failure: unknown email, wrong
// password, invalid or expired tokens. Callers cannot distinguish them.
var ErrAuthentication = errors.New("invalid credentials")

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service contains authentication business logic.
type Service struct {
	Users  *users.Service
	Tokens *auth.TokenManager
}

// NewService constructs a Service.
func NewService(usersSvc *users.Service, tokens *auth.TokenManager) *Service {
	return &Service{Users: usersSvc, Tokens: tokens}
}

// Register creates a plain user account and signs it in.
func (s *Service) Register(ctx context.Context, in users.CreateInput) (users.User, TokenPair, error) {
	// Public registration never grants elevated roles.
	in.Role = ""
	user, err := s.Users.Create(ctx, in)
	if err != nil {
		return users.User{}, TokenPair{}, err
	}

	pair, err := s.issue(user)
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	telemetry.Info("auth.registered", map[string]any{"user_id": user.ID})
	return user, pair, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (users.User, TokenPair, error) {
	user, err := s.Users.VerifyCredentials(ctx, email, password)
	if err != nil {
		return users.User{}, TokenPair{}, ErrAuthentication
	}

	pair, err := s.issue(user)
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	telemetry.Info("auth.login", map[string]any{"user_id": user.ID})
	return user, pair, nil
}

// Refresh validates a refresh token and issues a brand-new pair. The user
// record is re-resolved so role changes take effect on the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (users.User, TokenPair, error) {
	claims, err := s.Tokens.Verify(refreshToken)
	if err != nil {
		return users.User{}, TokenPair{}, ErrAuthentication
	}
	// An access token is not a refresh credential.
	if claims.TokenType != auth.TokenTypeRefresh {
		return users.User{}, TokenPair{}, ErrAuthentication
	}

	user, err := s.Users.GetByID(ctx, claims.UserID())
	if err != nil {
		return users.User{}, TokenPair{}, ErrAuthentication
	}

	pair, err := s.issue(user)
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *Service) issue(user users.User) (TokenPair, error) {
	access, err := s.Tokens.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Tokens.GenerateRefreshToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
