package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/polischuks/checkbox/internal/auth"
	"github.com/polischuks/checkbox/internal/models"
)

// TokenTypeBearer is the OAuth2 token type of issued access tokens.
const TokenTypeBearer = "bearer"

// Token is an issued access token.
type Token struct {
	AccessToken string
	TokenType   string
}

// AuthService handles registration and login.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, name, username, password string) (*models.User, error) {
	s.logger.Info("Register request", "username", username)

	user, err := s.authenticator.Register(ctx, name, username, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			s.logger.Warn("Registration rejected", "username", username, "error", err)
			return nil, err
		case errors.Is(err, auth.ErrMissingField), errors.Is(err, auth.ErrEmptyPassword):
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		s.logger.Error("Registration failed", "username", username, "error", err)
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login authenticates a user and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Token, error) {
	s.logger.Info("Login request", "username", username)

	if username == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Login failed", "username", username)
			return nil, err
		}
		s.logger.Error("Login failed", "username", username, "error", err)
		return nil, err
	}

	token, err := s.jwtManager.Generate(user.Username)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return &Token{AccessToken: token, TokenType: TokenTypeBearer}, nil
}
