package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/polischuks/checkbox/internal/models"
	"github.com/polischuks/checkbox/internal/storage"
)

// SessionGuard resolves bearer tokens to the users they were issued for.
type SessionGuard struct {
	tokens *JWTManager
	users  UserStorage
}

// NewSessionGuard creates a guard validating tokens with m and looking users up in users.
func NewSessionGuard(m *JWTManager, users UserStorage) *SessionGuard {
	return &SessionGuard{tokens: m, users: users}
}

// Resolve validates the token and returns its user.
// Bad signatures, malformed or expired tokens and tokens for users that no
// longer exist all return ErrInvalidToken. Store failures are returned as-is.
func (g *SessionGuard) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := g.users.GetUserByUsername(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return user, nil
}
