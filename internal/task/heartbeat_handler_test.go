package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/moodboard-api/internal/mocks"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatHandler_WritesUTCTimestamp(t *testing.T) {
	t.Parallel()
	hb := &mocks.MemoryHeartbeat{}
	h := NewHeartbeatHandler(hb, time.Minute, logger.Discard())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	h.now = func() time.Time { return fixed }

	require.NoError(t, h.Handle(context.Background(), jobFor(t, JobTypeHeartbeat, struct{}{})))

	at, ok, err := hb.ReadHeartbeat(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(fixed))
	assert.Equal(t, time.UTC, at.Location())
}

func TestHeartbeatHandler_MarkerExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	now := time.Now()
	hb := &mocks.MemoryHeartbeat{Now: func() time.Time { return now }}
	h := NewHeartbeatHandler(hb, time.Minute, logger.Discard())

	require.NoError(t, h.Handle(context.Background(), jobFor(t, JobTypeHeartbeat, struct{}{})))

	now = now.Add(59 * time.Second)
	_, ok, _ := hb.ReadHeartbeat(context.Background())
	assert.True(t, ok, "one missed tick is tolerated")

	now = now.Add(2 * time.Second)
	_, ok, _ = hb.ReadHeartbeat(context.Background())
	assert.False(t, ok)
}

func TestHeartbeatHandler_WriteError(t *testing.T) {
	t.Parallel()
	hb := &mocks.MemoryHeartbeat{Err: errors.New("redis down")}
	h := NewHeartbeatHandler(hb, time.Minute, logger.Discard())

	err := h.Handle(context.Background(), jobFor(t, JobTypeHeartbeat, struct{}{}))
	assert.ErrorContains(t, err, "write heartbeat")
}
