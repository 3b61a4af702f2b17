// Package models defines the core domain models for the receipt service.
//
// # Models
//
//   - User: an account that can log in and own receipts
//   - Product: a catalog entry with its current unit price
//   - Receipt: an immutable record of one completed sale
//   - SaleItem: one priced line within a receipt
//
// # Design Principles
//
//  1. **Snapshots over references**: a SaleItem keeps the unit price and line total from the
//     moment of sale; later catalog price changes never alter a stored receipt.
//  2. **Avoid circular references**: relationships are expressed with integer IDs, never with
//     back-pointers. A Receipt owns its SaleItems; everything else is looked up by ID.
//  3. **Exact money**: prices, quantities and totals are decimal.Decimal values.
package models
