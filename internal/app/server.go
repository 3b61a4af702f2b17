package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/polischuks/checkbox/internal/auth"
	"github.com/polischuks/checkbox/internal/events"
	"github.com/polischuks/checkbox/internal/handler"
	"github.com/polischuks/checkbox/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Handler builds the full HTTP handler. Receipt events go to pub.
func (a *App) Handler(pub events.Publisher) http.Handler {
	jwtManager := auth.NewJWTManager(a.cfg.SecretKey, a.cfg.TokenDuration(), a.clock)

	authService := service.NewAuthService(
		auth.NewPasswordAuthenticator(a.store, a.clock),
		jwtManager,
		a.logger,
	)
	receiptService := service.NewReceiptService(service.ReceiptServiceConfig{
		Store:                a.store,
		Printer:              a.printer,
		Clock:                a.clock,
		Publisher:            pub,
		Metrics:              a.metrics,
		Logger:               a.logger,
		UnknownProductPolicy: service.UnknownProductPolicy(a.cfg.UnknownProductPolicy),
		RequireFullPayment:   a.cfg.RequireFullPayment,
	})

	router := handler.NewRouter(handler.Config{
		Auth:           authService,
		Receipts:       receiptService,
		Sessions:       auth.NewSessionGuard(jwtManager, a.store),
		Health:         a.store,
		Metrics:        a.metrics,
		Logger:         a.logger,
		CORSOrigins:    a.cfg.CORSOrigins,
		RequestTimeout: a.cfg.RequestTimeout,
	})

	// h2c serves HTTP/2 without TLS alongside HTTP/1.1.
	return h2c.NewHandler(router, &http2.Server{})
}

func (a *App) runServer(ctx context.Context) error {
	var pub events.Publisher = events.NopPublisher{}
	if a.cfg.RabbitMQ.URL != "" {
		client, err := a.connectBroker()
		if err != nil {
			return err
		}
		pub = client
	} else {
		a.logger.Warn("RABBITMQ_URL not set, receipt events are disabled")
	}

	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(pub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", "address", a.cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.logger.Info("HTTP server stopped")
	return nil
}
