package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phrazzld/moodboard-api/internal/backoff"
	"github.com/sethvargo/go-retry"
)

// ErrReconnectBackoff is returned by Pinger.Ping while a failed connection is
// waiting out its reconnect delay.
var ErrReconnectBackoff = errors.New("redis reconnect backoff in effect")

// Pinger checks Redis reachability for health reporting. After a failed ping
// the client is discarded and a new one is created lazily on a later call,
// no sooner than a capped exponential delay.
type Pinger struct {
	opts       *redis.Options
	initial    time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	client    *redis.Client
	backoff   retry.Backoff
	nextRetry time.Time
}

// NewPinger creates a Pinger for the Redis instance at url.
func NewPinger(url string, initial, maxBackoff time.Duration, logger *slog.Logger) (*Pinger, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Pinger{
		opts:       opts,
		initial:    initial,
		maxBackoff: maxBackoff,
		logger:     logger.With(slog.String("component", "redis_pinger")),
		now:        time.Now,
		backoff:    backoff.Capped(initial, maxBackoff),
	}, nil
}

// Ping checks the connection, reconnecting if a previous ping failed.
func (p *Pinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		if p.now().Before(p.nextRetry) {
			return ErrReconnectBackoff
		}
		p.client = redis.NewClient(p.opts)
	}

	if err := p.client.Ping(ctx).Err(); err != nil {
		_ = p.client.Close()
		p.client = nil
		delay, _ := p.backoff.Next()
		p.nextRetry = p.now().Add(delay)
		p.logger.Warn("redis ping failed, client discarded",
			slog.String("error", err.Error()),
			slog.Duration("reconnect_after", delay))
		return fmt.Errorf("ping redis: %w", err)
	}

	p.backoff = backoff.Capped(p.initial, p.maxBackoff)
	return nil
}

// Close releases the current client, if any.
func (p *Pinger) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
