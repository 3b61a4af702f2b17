// Package events carries receipt notifications between the API server and
// background workers over RabbitMQ.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/models"
)

// ReceiptCreated is published after a receipt has been committed.
type ReceiptCreated struct {
	EventID     string          `json:"event_id"`
	ReceiptID   int64           `json:"receipt_id"`
	UserID      int64           `json:"user_id"`
	PaymentType string          `json:"payment_type"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewReceiptCreated builds the event for a stored receipt.
func NewReceiptCreated(r *models.Receipt) ReceiptCreated {
	return ReceiptCreated{
		EventID:     uuid.NewString(),
		ReceiptID:   r.ID,
		UserID:      r.UserID,
		PaymentType: r.PaymentType,
		Total:       r.Total,
		CreatedAt:   r.CreatedAt,
	}
}

// Publisher sends receipt notifications.
type Publisher interface {
	PublishReceiptCreated(ctx context.Context, event ReceiptCreated) error
}

// Handler processes one delivered event. Returning an error requeues the message.
type Handler func(ctx context.Context, event ReceiptCreated) error

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// PublishReceiptCreated does nothing.
func (NopPublisher) PublishReceiptCreated(context.Context, ReceiptCreated) error { return nil }
