package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/models"
	"github.com/polischuks/checkbox/internal/storage"
)

type productRow struct {
	ID    int64           `db:"id"`
	Name  string          `db:"name"`
	Price decimal.Decimal `db:"price"`
}

// GetProduct retrieves a catalog entry by ID.
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, name, price FROM products WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &models.Product{ID: row.ID, Name: row.Name, Price: row.Price}, nil
}

// CreateProduct inserts a catalog entry. A non-zero product.ID is kept as is,
// otherwise the generated ID is written back.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == 0 {
		err := s.db.QueryRowxContext(ctx,
			s.db.Rebind(`INSERT INTO products (name, price) VALUES (?, ?) RETURNING id`),
			product.Name, product.Price,
		).Scan(&product.ID)
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO products (id, name, price) VALUES (?, ?, ?)`),
		product.ID, product.Name, product.Price,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %d: %w", product.ID, storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}

	// Explicit IDs bypass the sequence; move it past them.
	if s.driver == DriverPostgres {
		_, err = s.db.ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('products', 'id'), (SELECT MAX(id) FROM products))`)
		if err != nil {
			return fmt.Errorf("failed to advance product sequence: %w", err)
		}
	}

	return nil
}
