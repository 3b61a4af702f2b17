package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/models"
	"github.com/polischuks/checkbox/internal/storage"
)

const receiptColumns = `id, created_at, user_id, payment_type, payment_amount, total, change_given`

type receiptRow struct {
	ID            int64           `db:"id"`
	CreatedAt     int64           `db:"created_at"`
	UserID        int64           `db:"user_id"`
	PaymentType   string          `db:"payment_type"`
	PaymentAmount decimal.Decimal `db:"payment_amount"`
	Total         decimal.Decimal `db:"total"`
	ChangeGiven   decimal.Decimal `db:"change_given"`
}

func (r receiptRow) toModel() *models.Receipt {
	return &models.Receipt{
		ID:            r.ID,
		CreatedAt:     unixTime(r.CreatedAt),
		UserID:        r.UserID,
		PaymentType:   r.PaymentType,
		PaymentAmount: r.PaymentAmount,
		Total:         r.Total,
		ChangeGiven:   r.ChangeGiven,
		SaleItems:     []models.SaleItem{},
	}
}

type saleItemRow struct {
	ID          int64           `db:"id"`
	ReceiptID   int64           `db:"receipt_id"`
	ProductID   int64           `db:"product_id"`
	ProductName string          `db:"product_name"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	TotalPrice  decimal.Decimal `db:"total_price"`
}

// CreateReceipt persists a receipt and its sale items in a single transaction.
func (s *Store) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	start := time.Now()
	createdAt := receipt.CreatedAt.Unix()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert receipt
	var receiptID int64
	err = tx.QueryRowxContext(ctx,
		tx.Rebind(`INSERT INTO receipts (created_at, user_id, payment_type, payment_amount, total, change_given)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		createdAt, receipt.UserID, receipt.PaymentType,
		receipt.PaymentAmount, receipt.Total, receipt.ChangeGiven,
	).Scan(&receiptID)
	if err != nil {
		s.logger.Error("failed to insert receipt", "user_id", receipt.UserID, "error", err)
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	// Insert sale items
	itemIDs := make([]int64, len(receipt.SaleItems))
	insertItem := tx.Rebind(`INSERT INTO sale_items (receipt_id, product_id, quantity, unit_price, total_price)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`)
	for i, item := range receipt.SaleItems {
		err = tx.QueryRowxContext(ctx, insertItem,
			receiptID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice,
		).Scan(&itemIDs[i])
		if err != nil {
			s.logger.Error("failed to insert sale item",
				"user_id", receipt.UserID, "product_id", item.ProductID, "error", err)
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Only publish generated IDs once the transaction is durable.
	receipt.ID = receiptID
	receipt.CreatedAt = unixTime(createdAt)
	for i := range receipt.SaleItems {
		receipt.SaleItems[i].ID = itemIDs[i]
		receipt.SaleItems[i].ReceiptID = receiptID
	}

	s.logger.Debug("receipt stored",
		"receipt_id", receiptID,
		"items", len(receipt.SaleItems),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetReceipt retrieves a receipt by ID, including all sale items.
func (s *Store) GetReceipt(ctx context.Context, id int64) (*models.Receipt, error) {
	var row receiptRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT `+receiptColumns+` FROM receipts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receipt %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	receipt := row.toModel()
	if err := s.attachSaleItems(ctx, []*models.Receipt{receipt}); err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceiptsByUser retrieves a page of the user's receipts matching the filter.
func (s *Store) ListReceiptsByUser(ctx context.Context, userID int64, filter storage.ReceiptFilter) ([]*models.Receipt, error) {
	conds := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.DateFrom != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.DateFrom.Unix())
	}
	if filter.DateTo != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.DateTo.Unix())
	}
	if filter.MinTotal != nil {
		conds = append(conds, s.numericAtLeast("total"))
		args = append(args, *filter.MinTotal)
	}
	if filter.PaymentType != "" {
		conds = append(conds, "payment_type = ?")
		args = append(args, filter.PaymentType)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = math.MaxInt32
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := s.db.Rebind(`SELECT ` + receiptColumns + ` FROM receipts
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY id
		LIMIT ? OFFSET ?`)

	var rows []receiptRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	receipts := make([]*models.Receipt, len(rows))
	for i, row := range rows {
		receipts[i] = row.toModel()
	}
	if err := s.attachSaleItems(ctx, receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// numericAtLeast compares a money column against a bound parameter. SQLite
// keeps money as TEXT, so both sides are cast to compare by value.
func (s *Store) numericAtLeast(column string) string {
	if s.driver == DriverSQLite {
		return "CAST(" + column + " AS NUMERIC) >= CAST(? AS NUMERIC)"
	}
	return column + " >= ?"
}

// attachSaleItems loads the sale items of all given receipts with one query,
// resolving each product's current name.
func (s *Store) attachSaleItems(ctx context.Context, receipts []*models.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Receipt, len(receipts))
	ids := make([]int64, len(receipts))
	for i, r := range receipts {
		byID[r.ID] = r
		ids[i] = r.ID
	}

	query, args, err := sqlx.In(`
		SELECT si.id, si.receipt_id, si.product_id, p.name AS product_name,
		       si.quantity, si.unit_price, si.total_price
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.receipt_id IN (?)
		ORDER BY si.id`, ids)
	if err != nil {
		return fmt.Errorf("failed to build sale items query: %w", err)
	}

	var rows []saleItemRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to get sale items: %w", err)
	}

	for _, row := range rows {
		r := byID[row.ReceiptID]
		r.SaleItems = append(r.SaleItems, models.SaleItem{
			ID:          row.ID,
			ReceiptID:   row.ReceiptID,
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			TotalPrice:  row.TotalPrice,
		})
	}
	return nil
}
