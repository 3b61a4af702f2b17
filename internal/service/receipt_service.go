package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/calculator"
	"github.com/polischuks/checkbox/internal/clock"
	"github.com/polischuks/checkbox/internal/events"
	"github.com/polischuks/checkbox/internal/metrics"
	"github.com/polischuks/checkbox/internal/models"
	"github.com/polischuks/checkbox/internal/printer"
	"github.com/polischuks/checkbox/internal/storage"
)

// UnknownProductPolicy decides what happens to sale lines whose product is
// not in the catalog.
type UnknownProductPolicy string

const (
	// RejectUnknownProducts fails the whole receipt.
	RejectUnknownProducts UnknownProductPolicy = "reject"
	// SkipUnknownProducts drops the line and logs a warning.
	SkipUnknownProducts UnknownProductPolicy = "skip"
)

// Valid reports whether p is a known policy.
func (p UnknownProductPolicy) Valid() bool {
	return p == RejectUnknownProducts || p == SkipUnknownProducts
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ReceiptStore is the part of storage.Store the receipt pipeline needs.
type ReceiptStore interface {
	storage.Catalog
	storage.ReceiptStore
}

// LineRequest is one requested purchase line.
type LineRequest struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// CreateReceiptRequest holds everything needed to record a sale.
type CreateReceiptRequest struct {
	Items         []LineRequest
	PaymentType   string
	PaymentAmount decimal.Decimal
}

// ListReceiptsRequest filters and pages a user's receipts.
type ListReceiptsRequest struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	MinTotal    *decimal.Decimal
	PaymentType string
	Skip        int
	Limit       int
}

// ReceiptServiceConfig wires a ReceiptService. Store and Printer are required.
type ReceiptServiceConfig struct {
	Store     ReceiptStore
	Printer   *printer.Printer
	Clock     clock.Clock
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	UnknownProductPolicy UnknownProductPolicy
	RequireFullPayment   bool
}

// ReceiptService creates and reads receipts.
type ReceiptService struct {
	store     ReceiptStore
	printer   *printer.Printer
	clock     clock.Clock
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	unknownProducts    UnknownProductPolicy
	requireFullPayment bool
}

// NewReceiptService creates a ReceiptService, filling in defaults for optional fields.
func NewReceiptService(cfg ReceiptServiceConfig) *ReceiptService {
	s := &ReceiptService{
		store:              cfg.Store,
		printer:            cfg.Printer,
		clock:              cfg.Clock,
		publisher:          cfg.Publisher,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
		unknownProducts:    cfg.UnknownProductPolicy,
		requireFullPayment: cfg.RequireFullPayment,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if !s.unknownProducts.Valid() {
		s.unknownProducts = RejectUnknownProducts
	}
	return s
}

func validateCreateRequest(req CreateReceiptRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: sale_items must not be empty", ErrValidation)
	}
	for i, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return fmt.Errorf("%w: sale_items[%d]: quantity must be greater than zero", ErrValidation, i)
		}
	}
	if strings.TrimSpace(req.PaymentType) == "" {
		return fmt.Errorf("%w: payment_type is required", ErrValidation)
	}
	if req.PaymentAmount.IsNegative() {
		return fmt.Errorf("%w: payment_amount cannot be negative", ErrValidation)
	}
	return nil
}

// CreateReceipt prices the requested lines against the catalog and stores
// the receipt with all of its sale items atomically.
func (s *ReceiptService) CreateReceipt(ctx context.Context, buyer *models.User, req CreateReceiptRequest) (*models.Receipt, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}
	paymentType := strings.TrimSpace(req.PaymentType)

	// Resolve every line against the catalog
	lines := make([]calculator.Line, 0, len(req.Items))
	names := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		product, err := s.store.GetProduct(ctx, item.ProductID)
		if errors.Is(err, storage.ErrNotFound) {
			if s.unknownProducts == SkipUnknownProducts {
				s.logger.Warn("Skipping unknown product", "product_id", item.ProductID, "user_id", buyer.ID)
				continue
			}
			return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, item.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up product %d: %w", item.ProductID, err)
		}

		lines = append(lines, calculator.Line{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		names = append(names, product.Name)
	}

	priced, err := calculator.PriceReceipt(lines, req.PaymentAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if priced.Change.IsNegative() {
		if s.requireFullPayment {
			return nil, fmt.Errorf("%w: total %s, tendered %s", ErrInsufficientPayment, priced.Total, req.PaymentAmount)
		}
		s.logger.Warn("Receipt underpaid",
			"user_id", buyer.ID,
			"total", priced.Total.String(),
			"payment_amount", req.PaymentAmount.String(),
		)
	}

	receipt := &models.Receipt{
		CreatedAt:     s.clock.Now().UTC(),
		UserID:        buyer.ID,
		PaymentType:   paymentType,
		PaymentAmount: req.PaymentAmount,
		Total:         priced.Total,
		ChangeGiven:   priced.Change,
		SaleItems:     make([]models.SaleItem, len(priced.Lines)),
	}
	for i, line := range priced.Lines {
		receipt.SaleItems[i] = models.SaleItem{
			ProductID:   line.ProductID,
			ProductName: names[i],
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.Total,
		}
	}

	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		s.logger.Error("Failed to store receipt", "user_id", buyer.ID, "error", err)
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	s.metrics.ObserveReceipt(receipt.PaymentType, receipt.Total)
	if err := s.publisher.PublishReceiptCreated(ctx, events.NewReceiptCreated(receipt)); err != nil {
		s.logger.Error("Failed to publish receipt event", "receipt_id", receipt.ID, "error", err)
	}

	s.logger.Info("Receipt created",
		"receipt_id", receipt.ID,
		"user_id", buyer.ID,
		"items", len(receipt.SaleItems),
		"total", receipt.Total.String(),
		"payment_type", receipt.PaymentType,
	)
	return receipt, nil
}

// GetReceipt returns any receipt by ID.
func (s *ReceiptService) GetReceipt(ctx context.Context, id int64) (*models.Receipt, error) {
	receipt, err := s.store.GetReceipt(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt %d: %w", id, err)
	}
	return receipt, nil
}

// GetReceiptForUser returns the receipt only if user owns it. Receipts of
// other users are reported as not found.
func (s *ReceiptService) GetReceiptForUser(ctx context.Context, user *models.User, id int64) (*models.Receipt, error) {
	receipt, err := s.GetReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt.UserID != user.ID {
		s.logger.Debug("Receipt owned by another user", "receipt_id", id, "user_id", user.ID)
		return nil, ErrNotFound
	}
	return receipt, nil
}

// ListReceipts returns a page of the user's receipts ordered by ID.
func (s *ReceiptService) ListReceipts(ctx context.Context, user *models.User, req ListReceiptsRequest) ([]*models.Receipt, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}
	switch {
	case req.Skip < 0:
		return nil, fmt.Errorf("%w: skip cannot be negative", ErrValidation)
	case limit < 0 || limit > MaxPageSize:
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxPageSize)
	case req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo):
		return nil, fmt.Errorf("%w: date_from is after date_to", ErrValidation)
	}

	receipts, err := s.store.ListReceiptsByUser(ctx, user.ID, storage.ReceiptFilter{
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		MinTotal:    req.MinTotal,
		PaymentType: req.PaymentType,
		Offset:      req.Skip,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}

// ReceiptText renders any receipt as printable text.
func (s *ReceiptService) ReceiptText(ctx context.Context, id int64) (string, error) {
	receipt, err := s.GetReceipt(ctx, id)
	if err != nil {
		return "", err
	}
	return s.printer.Format(receipt), nil
}

