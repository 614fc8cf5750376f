package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/moodboard-api/internal/platform/logger"
)

// HeartbeatWriter stores the worker liveness marker.
type HeartbeatWriter interface {
	WriteHeartbeat(ctx context.Context, at time.Time, ttl time.Duration) error
}

// HeartbeatHandler handles Heartbeat jobs by refreshing the liveness marker.
// The TTL should exceed the schedule interval so one missed tick is tolerated.
type HeartbeatHandler struct {
	writer HeartbeatWriter
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewHeartbeatHandler creates a HeartbeatHandler.
func NewHeartbeatHandler(writer HeartbeatWriter, ttl time.Duration, logger *slog.Logger) *HeartbeatHandler {
	return &HeartbeatHandler{writer: writer, ttl: ttl, now: time.Now, logger: logger}
}

// Handle implements Handler.
func (h *HeartbeatHandler) Handle(ctx context.Context, _ *Job) error {
	at := h.now().UTC()
	if err := h.writer.WriteHeartbeat(ctx, at, h.ttl); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	logger.FromContextOrDefault(ctx, h.logger).Debug("heartbeat written", slog.Time("at", at))
	return nil
}
