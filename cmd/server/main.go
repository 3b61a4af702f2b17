package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/polischuks/checkbox/internal/app"
	"github.com/polischuks/checkbox/internal/config"
	"github.com/polischuks/checkbox/pkg/logging"
)

func main() {
	mode := flag.String("mode", app.ModeServer, "run mode: server, worker or seed")
	products := flag.String("products", "", "products JSON file loaded in seed mode")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	var args []string
	if *mode == app.ModeSeed {
		args = append(args, *products)
	}

	runErr := a.Run(ctx, *mode, args)
	if err := a.Close(); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	if runErr != nil {
		logger.Error("Exited with error", "mode", *mode, "error", runErr)
		os.Exit(1)
	}
}
