// Package archive stores rendered receipt texts in object storage so they
// can be shared or reprinted without hitting the database.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/polischuks/checkbox/internal/events"
	"github.com/polischuks/checkbox/internal/metrics"
	"github.com/polischuks/checkbox/internal/models"
)

const textContentType = "text/plain; charset=utf-8"

// ObjectStore is where archived texts are written.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ReceiptSource loads a receipt by ID.
type ReceiptSource interface {
	GetReceipt(ctx context.Context, id int64) (*models.Receipt, error)
}

// Formatter renders a receipt as text.
type Formatter interface {
	Format(r *models.Receipt) string
}

// Archiver renders receipts and uploads the text.
type Archiver struct {
	receipts ReceiptSource
	format   Formatter
	objects  ObjectStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(receipts ReceiptSource, format Formatter, objects ObjectStore, m *metrics.Metrics, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{receipts: receipts, format: format, objects: objects, metrics: m, logger: logger}
}

// Key returns the object key of a receipt's text.
func Key(receiptID int64) string {
	return fmt.Sprintf("receipts/%d.txt", receiptID)
}

// HandleReceiptCreated archives the receipt named by the event. It has the
// events.Handler signature so it can be plugged into a consumer directly.
func (a *Archiver) HandleReceiptCreated(ctx context.Context, event events.ReceiptCreated) error {
	receipt, err := a.receipts.GetReceipt(ctx, event.ReceiptID)
	if err != nil {
		a.metrics.ObserveArchive(err)
		return fmt.Errorf("failed to load receipt %d: %w", event.ReceiptID, err)
	}

	key := Key(receipt.ID)
	location, err := a.objects.Put(ctx, key, strings.NewReader(a.format.Format(receipt)), textContentType)
	a.metrics.ObserveArchive(err)
	if err != nil {
		return err
	}

	a.logger.Info("Receipt archived", "receipt_id", receipt.ID, "event_id", event.EventID, "key", key, "location", location)
	return nil
}
