package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/moodboard-api/internal/redact"
	"golang.org/x/sync/errgroup"
)

// Status values reported per dependency.
const (
	StatusOK          = "ok"
	StatusUnreachable = "unreachable"
	StatusStale       = "stale"
	StatusUnknown     = "unknown"
)

// Report is the health verdict returned to callers.
type Report struct {
	API      string `json:"api"`
	Database string `json:"database"`
	Queue    string `json:"queue"`
	Worker   string `json:"worker"`
}

// Healthy reports whether every dependency is ok.
func (r Report) Healthy() bool {
	return r.API == StatusOK && r.Database == StatusOK && r.Queue == StatusOK && r.Worker == StatusOK
}

// DBPinger checks database reachability. *sql.DB implements it.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// QueuePinger checks broker reachability.
type QueuePinger interface {
	Ping(ctx context.Context) error
}

// HeartbeatReader reads the worker liveness marker. ok is false when the
// marker is absent or expired.
type HeartbeatReader interface {
	ReadHeartbeat(ctx context.Context) (at time.Time, ok bool, err error)
}

// Restarter restarts a process through the hosting infrastructure.
type Restarter interface {
	Restart(ctx context.Context, process string) error
}

// Config tunes a Reporter.
type Config struct {
	// StaleAfter is the maximum heartbeat age considered live.
	StaleAfter time.Duration
	// ProbeTimeout bounds each dependency probe.
	ProbeTimeout time.Duration
	// ProcessLabel names the worker process for the Restarter.
	ProcessLabel string
}

// Reporter probes dependencies concurrently and builds a Report.
type Reporter struct {
	db        DBPinger
	queue     QueuePinger
	heartbeat HeartbeatReader
	restarter Restarter
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewReporter creates a Reporter.
func NewReporter(
	db DBPinger,
	queue QueuePinger,
	heartbeat HeartbeatReader,
	restarter Restarter,
	config Config,
	logger *slog.Logger,
) *Reporter {
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 2 * time.Second
	}
	return &Reporter{
		db:        db,
		queue:     queue,
		heartbeat: heartbeat,
		restarter: restarter,
		config:    config,
		logger:    logger.With(slog.String("component", "health")),
		now:       time.Now,
	}
}

// Check probes every dependency. A stale worker triggers exactly one restart
// request per call.
func (r *Reporter) Check(ctx context.Context) Report {
	report := Report{API: StatusOK}

	var g errgroup.Group
	g.Go(func() error {
		report.Database = r.probe(ctx, "database", r.db.PingContext)
		return nil
	})
	g.Go(func() error {
		report.Queue = r.probe(ctx, "queue", r.queue.Ping)
		return nil
	})
	g.Go(func() error {
		report.Worker = r.workerStatus(ctx)
		return nil
	})
	_ = g.Wait()

	if report.Worker == StatusStale {
		r.restartWorker(ctx)
	}
	return report
}

func (r *Reporter) probe(ctx context.Context, name string, ping func(context.Context) error) string {
	ctx, cancel := context.WithTimeout(ctx, r.config.ProbeTimeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		r.logger.Warn("dependency unreachable",
			slog.String("dependency", name),
			slog.String("error", redact.Error(err)))
		return StatusUnreachable
	}
	return StatusOK
}

func (r *Reporter) workerStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, r.config.ProbeTimeout)
	defer cancel()

	at, ok, err := r.heartbeat.ReadHeartbeat(ctx)
	if err != nil {
		// The marker store is down; that says nothing about the worker.
		r.logger.Warn("failed to read worker heartbeat", slog.String("error", redact.Error(err)))
		return StatusUnknown
	}
	if !ok {
		r.logger.Warn("worker heartbeat missing")
		return StatusStale
	}
	if age := r.now().Sub(at); age > r.config.StaleAfter {
		r.logger.Warn("worker heartbeat stale",
			slog.Time("last_heartbeat", at),
			slog.Duration("age", age))
		return StatusStale
	}
	return StatusOK
}

func (r *Reporter) restartWorker(ctx context.Context) {
	if err := r.restarter.Restart(ctx, r.config.ProcessLabel); err != nil {
		r.logger.Error("failed to request worker restart",
			slog.String("process", r.config.ProcessLabel),
			slog.String("error", redact.Error(err)))
		return
	}
	r.logger.Warn("requested worker restart", slog.String("process", r.config.ProcessLabel))
}
