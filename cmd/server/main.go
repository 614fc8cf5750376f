// Package main implements the moodboard API server. It exposes the health
// check, system stats and the clustering trigger, and enqueues enrichment
// jobs for the worker process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/moodboard-api/internal/config"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/platform/postgres"
)

func main() {
	migrate := flag.String("migrate", "", "run a migration command (up, down, status, version) and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrate); err != nil {
		log.Printf("server failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, migrateCommand string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	lg, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	lg.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))

	db, err := postgres.Open(ctx, cfg.Database.URL, lg)
	if err != nil {
		return err
	}

	if migrateCommand != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, migrateCommand, lg)
	}

	app, err := newApplication(cfg, lg, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer app.cleanup()

	return app.startHTTPServer(ctx, app.setupRouter())
}
