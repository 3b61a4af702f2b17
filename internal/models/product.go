package models

import "github.com/shopspring/decimal"

// Product is a catalog entry. Products are managed outside this service
// and are read-only from the receipt pipeline's point of view.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
