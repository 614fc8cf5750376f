package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"

	"github.com/phrazzld/moodboard-api/internal/api"
	"github.com/phrazzld/moodboard-api/internal/config"
	"github.com/phrazzld/moodboard-api/internal/health"
	"github.com/phrazzld/moodboard-api/internal/platform/postgres"
	"github.com/phrazzld/moodboard-api/internal/platform/redis"
	"github.com/phrazzld/moodboard-api/internal/store"
	"github.com/phrazzld/moodboard-api/internal/task"
)

// producerConsumer names the server's processing list. The server only
// enqueues, so the list stays empty.
const producerConsumer = "api"

// application holds the server's shared dependencies and releases them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	redis  *goredis.Client
	pinger *redis.Pinger

	boardStore store.BoardStore
	statsStore store.StatsStore

	enqueuer *task.Enqueuer
	reporter api.HealthChecker
}

// newApplication wires stores, the job enqueuer and the health reporter.
// Redis is not required at startup: commands fail until it is reachable and
// the health check reports the queue as unreachable meanwhile.
func newApplication(cfg *config.Config, lg *slog.Logger, db *sql.DB) (*application, error) {
	opts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pinger, err := redis.NewPinger(cfg.Redis.URL, cfg.Worker.RestartInitialBackoff, cfg.Health.ReconnectMaxBackoff, lg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	var restarter health.Restarter = health.NoopRestarter{Logger: lg}
	if cfg.Health.RestartURL != "" {
		restarter = health.NewHTTPRestarter(cfg.Health.RestartURL, cfg.Health.RestartToken, nil)
	}

	broker := redis.NewBroker(client, cfg.Redis.QueueKey, producerConsumer, lg)

	app := &application{
		config:     cfg,
		logger:     lg,
		db:         db,
		redis:      client,
		pinger:     pinger,
		boardStore: postgres.NewPostgresBoardStore(db, lg),
		statsStore: postgres.NewPostgresStatsStore(db),
		enqueuer:   task.NewEnqueuer(broker, lg),
		reporter: health.NewReporter(db, pinger, redis.NewHeartbeatStore(client), restarter, health.Config{
			StaleAfter:   cfg.Health.HeartbeatStaleAfter,
			ProcessLabel: cfg.Health.ProcessLabel,
		}, lg),
	}

	lg.Info("application initialized",
		slog.String("queue", cfg.Redis.QueueKey),
		slog.Bool("restart_hook", cfg.Health.RestartURL != ""))
	return app, nil
}

// handlers builds the HTTP handlers from the application's dependencies.
func (app *application) handlers() (*api.BoardHandler, *api.SystemHandler) {
	return api.NewBoardHandler(app.boardStore, app.enqueuer, app.logger),
		api.NewSystemHandler(app.reporter, app.statsStore)
}

// cleanup releases connections. It is safe to call once after the server stops.
func (app *application) cleanup() {
	if err := app.pinger.Close(); err != nil {
		app.logger.Warn("failed to close redis pinger", slog.String("error", err.Error()))
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Warn("failed to close redis client", slog.String("error", err.Error()))
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn("failed to close database", slog.String("error", err.Error()))
	}
}
