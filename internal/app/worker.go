package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/polischuks/checkbox/internal/archive"
	"github.com/polischuks/checkbox/internal/service"
)

// runWorker consumes receipt events and archives each receipt's text to S3.
func (a *App) runWorker(ctx context.Context) error {
	if a.cfg.RabbitMQ.URL == "" {
		return errors.New("worker mode requires RABBITMQ_URL")
	}
	if !a.cfg.ArchiveEnabled() {
		return errors.New("worker mode requires S3_BUCKET")
	}

	objects, err := archive.NewS3Store(ctx, archive.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		Region:          a.cfg.S3.Region,
		Bucket:          a.cfg.S3.Bucket,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		UseSSL:          a.cfg.S3.UseSSL,
	}, a.logger)
	if err != nil {
		return err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return err
	}

	client, err := a.connectBroker()
	if err != nil {
		return err
	}

	receipts := service.NewReceiptService(service.ReceiptServiceConfig{
		Store:   a.store,
		Printer: a.printer,
		Logger:  a.logger,
	})
	archiver := archive.NewArchiver(receipts, a.printer, objects, a.metrics, a.logger)

	a.logger.Info("Worker started", "queue", a.cfg.RabbitMQ.Queue, "bucket", a.cfg.S3.Bucket)
	if err := client.Consume(ctx, archiver.HandleReceiptCreated); err != nil {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	a.logger.Info("Worker stopped")
	return nil
}
