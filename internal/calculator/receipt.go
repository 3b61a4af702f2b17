package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places money is rounded to.
const MoneyPlaces = 2

var (
	ErrNonPositiveQuantity = errors.New("quantity must be greater than zero")
	ErrNegativePrice       = errors.New("unit price cannot be negative")
)

// Line represents a requested purchase line whose unit price is already resolved.
type Line struct {
	ProductID int64
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// PricedLine is a Line with its computed line total.
type PricedLine struct {
	Line
	Total decimal.Decimal
}

// Result is the outcome of pricing a receipt.
type Result struct {
	Lines  []PricedLine
	Total  decimal.Decimal
	Change decimal.Decimal
}

// LineTotal returns quantity × unit price rounded to MoneyPlaces.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(MoneyPlaces)
}

// PriceReceipt computes line totals, the receipt total and the change due.
// Lines keep their input order. Change is tendered - total and may be negative.
func PriceReceipt(lines []Line, tendered decimal.Decimal) (*Result, error) {
	result := &Result{
		Lines: make([]PricedLine, 0, len(lines)),
		Total: decimal.Zero,
	}

	for i, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("line %d (product %d): %w", i+1, line.ProductID, ErrNonPositiveQuantity)
		}
		if line.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("line %d (product %d): %w", i+1, line.ProductID, ErrNegativePrice)
		}

		total := LineTotal(line.Quantity, line.UnitPrice)
		result.Lines = append(result.Lines, PricedLine{Line: line, Total: total})
		result.Total = result.Total.Add(total)
	}

	result.Change = tendered.Sub(result.Total)
	return result, nil
}
