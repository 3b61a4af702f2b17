package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/polischuks/checkbox/internal/models"
	"github.com/polischuks/checkbox/internal/storage"
)

type userRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    unixTime(r.CreatedAt),
	}
}

// CreateUser inserts a new user into the database.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := s.db.Rebind(`
		INSERT INTO users (name, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	createdAt := user.CreatedAt.Unix()
	err := s.db.QueryRowxContext(ctx, query,
		user.Name,
		user.Username,
		user.PasswordHash,
		createdAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, storage.ErrConflict)
		}
		s.logger.Error("failed to insert user", "username", user.Username, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = unixTime(createdAt)
	return nil
}

// GetUserByUsername retrieves a user by their username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := s.db.Rebind(`
		SELECT id, name, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`)

	var row userRow
	err := s.db.GetContext(ctx, &row, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return row.toModel(), nil
}
