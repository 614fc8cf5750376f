package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// HeartbeatKey is the key holding the worker liveness marker.
const HeartbeatKey = "worker:heartbeat"

// HeartbeatStore reads and writes the worker liveness marker. The value is
// the RFC 3339 timestamp of the tick that wrote it.
type HeartbeatStore struct {
	client redis.Cmdable
}

// NewHeartbeatStore creates a HeartbeatStore.
func NewHeartbeatStore(client redis.Cmdable) *HeartbeatStore {
	return &HeartbeatStore{client: client}
}

// WriteHeartbeat stores at with an expiry of ttl.
func (s *HeartbeatStore) WriteHeartbeat(ctx context.Context, at time.Time, ttl time.Duration) error {
	if err := s.client.Set(ctx, HeartbeatKey, at.UTC().Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// ReadHeartbeat returns the last heartbeat; ok is false when the marker is
// absent or expired.
func (s *HeartbeatStore) ReadHeartbeat(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, HeartbeatKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read heartbeat: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse heartbeat %q: %w", raw, err)
	}
	return at, true, nil
}
