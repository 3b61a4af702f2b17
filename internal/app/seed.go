package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/polischuks/checkbox/internal/models"
	"github.com/polischuks/checkbox/internal/storage"
)

// ProductWriter adds catalog entries.
type ProductWriter interface {
	CreateProduct(ctx context.Context, product *models.Product) error
}

func (a *App) runSeed(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open products file: %w", err)
	}
	defer f.Close()

	created, err := SeedProducts(ctx, a.store, f, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("Catalog seeded", "file", path, "created", created)
	return nil
}

// SeedProducts loads a JSON array of products into the catalog. Products
// whose ID already exists are left untouched. It returns how many were added.
func SeedProducts(ctx context.Context, w ProductWriter, r io.Reader, logger *slog.Logger) (int, error) {
	var products []models.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return 0, fmt.Errorf("failed to decode products: %w", err)
	}

	for i, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			return 0, fmt.Errorf("product %d: name is required", i)
		}
		if p.Price.IsNegative() {
			return 0, fmt.Errorf("product %d (%s): price cannot be negative", i, p.Name)
		}
	}

	created := 0
	for i := range products {
		p := &products[i]
		if err := w.CreateProduct(ctx, p); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				logger.Warn("Product already exists, skipping", "product_id", p.ID)
				continue
			}
			return created, err
		}
		logger.Debug("Product added", "product_id", p.ID, "name", p.Name, "price", p.Price.String())
		created++
	}
	return created, nil
}
