package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt represents a completed sale with its priced line items.
// A receipt is never mutated after it has been stored.
type Receipt struct {
	// ID is the store-assigned receipt number.
	ID int64

	// CreatedAt is when the sale was recorded.
	CreatedAt time.Time

	// UserID is the owner (the cashier account that created the receipt).
	UserID int64

	// PaymentType is the payment method tag, e.g. "cash" or "card".
	PaymentType string

	// PaymentAmount is the amount tendered by the buyer.
	PaymentAmount decimal.Decimal

	// Total is the sum of all SaleItems' TotalPrice.
	Total decimal.Decimal

	// ChangeGiven is PaymentAmount - Total. Negative when the buyer underpaid.
	ChangeGiven decimal.Decimal

	// SaleItems are the priced lines in the order they were requested.
	SaleItems []SaleItem
}

// SaleItem is one priced line within a receipt.
type SaleItem struct {
	ID        int64
	ReceiptID int64

	// ProductID links to the catalog entry. ProductName is resolved from the
	// catalog when the receipt is read, so it reflects the current name.
	ProductID   int64
	ProductName string

	// Quantity may be fractional for weighed goods.
	Quantity decimal.Decimal

	// UnitPrice and TotalPrice are captured at sale time and never recomputed.
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}
