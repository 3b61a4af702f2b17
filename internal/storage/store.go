// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// ReceiptFilter narrows a receipt listing. Zero values mean "no filter".
type ReceiptFilter struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	MinTotal    *decimal.Decimal
	PaymentType string
	Offset      int
	Limit       int
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts the user and populates user.ID.
	// Returns ErrConflict if the username is already taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername looks up a user by exact username.
	// Returns ErrNotFound if there is no such user.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Catalog resolves products.
type Catalog interface {
	// GetProduct returns the product with the given ID, or ErrNotFound.
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// ReceiptStore persists receipts together with their sale items.
type ReceiptStore interface {
	// CreateReceipt inserts the receipt and all of its sale items in one
	// transaction, populating the generated IDs. On error nothing is stored.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error

	// GetReceipt retrieves a receipt with its sale items, or ErrNotFound.
	GetReceipt(ctx context.Context, id int64) (*models.Receipt, error)

	// ListReceiptsByUser returns the user's receipts matching the filter, ordered by ID.
	ListReceiptsByUser(ctx context.Context, userID int64, filter ReceiptFilter) ([]*models.Receipt, error)
}

// Store defines all storage operations of the service.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	Catalog
	ReceiptStore

	// CreateProduct adds a catalog entry. Used for seeding the catalog.
	CreateProduct(ctx context.Context, product *models.Product) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
