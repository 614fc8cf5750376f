package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/moodboard-api/internal/mocks"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }
func (f pingFunc) Ping(ctx context.Context) error        { return f(ctx) }

func ok(context.Context) error { return nil }

type reporterFixture struct {
	heartbeat *mocks.MemoryHeartbeat
	restarter *mocks.MockRestarter
	reporter  *Reporter
	now       time.Time
}

func newFixture(t *testing.T, db, queue pingFunc) *reporterFixture {
	t.Helper()
	f := &reporterFixture{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	f.heartbeat = &mocks.MemoryHeartbeat{Now: func() time.Time { return f.now }}
	f.restarter = &mocks.MockRestarter{}
	f.reporter = NewReporter(db, queue, f.heartbeat, f.restarter, Config{
		StaleAfter:   time.Minute,
		ProbeTimeout: time.Second,
		ProcessLabel: "worker",
	}, logger.Discard())
	f.reporter.now = func() time.Time { return f.now }
	return f
}

func (f *reporterFixture) beat(t *testing.T) {
	t.Helper()
	assert.NoError(t, f.heartbeat.WriteHeartbeat(context.Background(), f.now, time.Minute))
}

func TestReporter_AllHealthy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ok, ok)
	f.beat(t)

	report := f.reporter.Check(context.Background())
	assert.Equal(t, Report{API: "ok", Database: "ok", Queue: "ok", Worker: "ok"}, report)
	assert.True(t, report.Healthy())
	assert.Zero(t, f.restarter.CallCount())
}

func TestReporter_UnreachableDependencies(t *testing.T) {
	t.Parallel()
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp 10.0.0.5:5432: connection refused") })

	f := newFixture(t, down, ok)
	f.beat(t)
	report := f.reporter.Check(context.Background())
	assert.Equal(t, StatusUnreachable, report.Database)
	assert.Equal(t, StatusOK, report.Queue)
	assert.False(t, report.Healthy())

	f = newFixture(t, ok, down)
	f.beat(t)
	report = f.reporter.Check(context.Background())
	assert.Equal(t, StatusUnreachable, report.Queue)
	assert.Zero(t, f.restarter.CallCount(), "an unreachable queue is not a stale worker")
}

func TestReporter_ProbeTimeout(t *testing.T) {
	t.Parallel()
	hang := pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	f := newFixture(t, hang, ok)
	f.reporter.config.ProbeTimeout = 20 * time.Millisecond
	f.beat(t)

	report := f.reporter.Check(context.Background())
	assert.Equal(t, StatusUnreachable, report.Database)
}

func TestReporter_MissingHeartbeatRestartsOncePerCheck(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ok, ok)

	report := f.reporter.Check(context.Background())
	assert.Equal(t, StatusStale, report.Worker)
	assert.False(t, report.Healthy())
	assert.Equal(t, 1, f.restarter.CallCount())
	assert.Equal(t, []string{"worker"}, f.restarter.RestartCalls.Processes)

	f.reporter.Check(context.Background())
	assert.Equal(t, 2, f.restarter.CallCount())
}

func TestReporter_ExpiredHeartbeatIsStale(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ok, ok)
	f.beat(t)

	f.now = f.now.Add(90 * time.Second)
	report := f.reporter.Check(context.Background())
	assert.Equal(t, StatusStale, report.Worker)
	assert.Equal(t, 1, f.restarter.CallCount())
}

func TestReporter_OldHeartbeatIsStale(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ok, ok)
	// Marker still present but written long ago.
	assert.NoError(t, f.heartbeat.WriteHeartbeat(context.Background(), f.now.Add(-5*time.Minute), time.Hour))

	report := f.reporter.Check(context.Background())
	assert.Equal(t, StatusStale, report.Worker)
	assert.Equal(t, 1, f.restarter.CallCount())
}

func TestReporter_HeartbeatReadErrorIsUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ok, ok)
	f.heartbeat.Err = errors.New("redis down")

	report := f.reporter.Check(context.Background())
	assert.Equal(t, StatusUnknown, report.Worker)
	assert.False(t, report.Healthy())
	assert.Zero(t, f.restarter.CallCount())
}

func TestReporter_RestartErrorIsLogged(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ok, ok)
	log, buf := logger.NewCaptureLogger()
	f.reporter.logger = log
	f.restarter.Err = errors.New("403 forbidden")

	report := f.reporter.Check(context.Background())
	assert.Equal(t, StatusStale, report.Worker)
	assert.Equal(t, 1, buf.CountMessage("failed to request worker restart"))
}
