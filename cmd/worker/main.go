// Package main runs the enrichment worker: the supervised job pool, the
// heartbeat schedule and the delayed-job promoter.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/moodboard-api/internal/backoff"
	"github.com/phrazzld/moodboard-api/internal/config"
	"github.com/phrazzld/moodboard-api/internal/platform/gemini"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/platform/postgres"
	"github.com/phrazzld/moodboard-api/internal/platform/redis"
	"github.com/phrazzld/moodboard-api/internal/store"
	"github.com/phrazzld/moodboard-api/internal/task"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("worker failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	baseLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	lg := baseLogger.With(slog.String("process", cfg.Health.ProcessLabel))

	db, err := postgres.Open(ctx, cfg.Database.URL, lg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	client, err := redis.NewClient(ctx, cfg.Redis.URL, lg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ai, err := gemini.NewClient(ctx, cfg.LLM, lg.With(slog.String("component", "gemini")))
	if err != nil {
		return err
	}

	broker := redis.NewBroker(client, cfg.Redis.QueueKey, cfg.Redis.Consumer, lg)
	pool := newPool(cfg, db, client, broker, ai, lg)

	scheduler := task.NewScheduler(pool, lg)
	if err := scheduler.Add(cfg.Worker.HeartbeatSchedule, task.JobTypeHeartbeat, struct{}{}); err != nil {
		return err
	}

	supervisor := task.NewSupervisor("worker_pool", pool.Run,
		cfg.Worker.RestartInitialBackoff, cfg.Worker.RestartMaxBackoff, lg)

	lg.Info("worker starting",
		slog.Int("concurrency", cfg.Worker.Concurrency),
		slog.String("queue", cfg.Redis.QueueKey),
		slog.String("consumer", cfg.Redis.Consumer))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return broker.RunPromoter(gctx, cfg.Worker.PromoteInterval) })

	err = g.Wait()
	lg.Info("worker stopped")
	return err
}

// newPool builds the pool and registers one handler per job type.
func newPool(
	cfg *config.Config,
	db *sql.DB,
	client *goredis.Client,
	broker task.Broker,
	ai *gemini.Client,
	lg *slog.Logger,
) *task.Pool {
	items := postgres.NewPostgresItemStore(db, lg)
	boards := postgres.NewPostgresBoardStore(db, lg)
	labels := postgres.NewPostgresClusterLabelStore(db, lg)

	pool := task.NewPool(broker, task.PoolConfig{
		Concurrency:     cfg.Worker.Concurrency,
		PollTimeout:     cfg.Worker.PollTimeout,
		JobTimeout:      cfg.Worker.JobTimeout,
		ShutdownTimeout: cfg.Worker.ShutdownTimeout,
	}, lg)

	pool.Register(task.JobTypeGenerateEmbedding,
		task.NewEmbeddingHandler(items, ai, lg))
	pool.Register(task.JobTypeProcessImage,
		task.NewImageHandler(items, ai,
			backoff.NewPolicy(cfg.Worker.ImageMaxRetries, time.Second, cfg.Worker.ImageBackoffCap), lg))
	pool.Register(task.JobTypeClusterBoard,
		task.NewClusterHandler(task.ClusterDeps{
			Locks:      redis.NewLockService(client),
			Boards:     boards,
			Items:      items,
			Labels:     labels,
			Transactor: store.DBTransactor{DB: db},
			Namer:      ai,
		}, cfg.Worker.ClusterLockTTL, cfg.Worker.LockReleaseGrace, lg))
	pool.Register(task.JobTypeHeartbeat,
		task.NewHeartbeatHandler(redis.NewHeartbeatStore(client), cfg.Worker.HeartbeatTTL, lg))

	return pool
}
