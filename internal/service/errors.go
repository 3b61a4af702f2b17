package service

import "errors"

var (
	// ErrValidation marks a malformed request.
	ErrValidation = errors.New("invalid request")

	// ErrNotFound is returned for receipts that do not exist or are not
	// visible to the caller.
	ErrNotFound = errors.New("receipt not found")

	// ErrUnknownProduct is returned when a sale line references a product
	// missing from the catalog and the reject policy is active.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInsufficientPayment is returned when full payment is required and
	// the tendered amount is below the receipt total.
	ErrInsufficientPayment = errors.New("payment amount is less than the total")
)
