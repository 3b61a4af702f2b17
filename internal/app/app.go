// Package app wires configuration, storage and services into the runnable
// server, worker and seed modes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/polischuks/checkbox/internal/clock"
	"github.com/polischuks/checkbox/internal/config"
	"github.com/polischuks/checkbox/internal/events"
	"github.com/polischuks/checkbox/internal/metrics"
	"github.com/polischuks/checkbox/internal/printer"
	"github.com/polischuks/checkbox/internal/storage/sqlstore"
)

// Run modes.
const (
	ModeServer = "server"
	ModeWorker = "worker"
	ModeSeed   = "seed"
)

// App owns the long-lived resources shared by every mode.
type App struct {
	cfg     *config.Config
	store   *sqlstore.Store
	metrics *metrics.Metrics
	printer *printer.Printer
	clock   clock.Clock
	logger  *slog.Logger

	broker *events.Client
}

// New opens the store and builds the shared components.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "driver", cfg.DBDriver)

	return &App{
		cfg:     cfg,
		store:   store,
		metrics: metrics.New(),
		printer: printer.New(printer.Config{
			Vendor:   cfg.ShopName,
			Width:    cfg.ReceiptWidth,
			Location: cfg.Location(),
		}),
		clock:  clock.System{},
		logger: logger,
	}, nil
}

// Run executes the given mode until it finishes or SIGINT/SIGTERM arrives.
// args are the mode's positional arguments.
func (a *App) Run(ctx context.Context, mode string, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("Starting", "mode", mode)

	switch mode {
	case ModeServer:
		return a.runServer(ctx)
	case ModeWorker:
		return a.runWorker(ctx)
	case ModeSeed:
		if len(args) != 1 {
			return errors.New("seed mode expects exactly one products file")
		}
		return a.runSeed(ctx, args[0])
	default:
		return fmt.Errorf("unknown mode %q (use %s, %s or %s)", mode, ModeServer, ModeWorker, ModeSeed)
	}
}

// connectBroker dials RabbitMQ once and caches the client.
func (a *App) connectBroker() (*events.Client, error) {
	if a.broker != nil {
		return a.broker, nil
	}
	client, err := events.Dial(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Queue, a.logger)
	if err != nil {
		return nil, err
	}
	a.broker = client
	return client, nil
}

// Close releases all resources.
func (a *App) Close() error {
	var errs []error
	if a.broker != nil {
		errs = append(errs, a.broker.Close())
	}
	errs = append(errs, a.store.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	a.logger.Info("Shutdown complete")
	return nil
}
