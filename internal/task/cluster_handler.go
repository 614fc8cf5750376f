package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/moodboard-api/internal/cluster"
	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/generation"
	"github.com/phrazzld/moodboard-api/internal/lock"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
)

const maxLabelSamples = 3

// ClusterDeps are the collaborators of a ClusterHandler.
type ClusterDeps struct {
	Locks      lock.Service
	Boards     store.BoardStore
	Items      store.ItemStore
	Labels     store.ClusterLabelStore
	Transactor store.Transactor
	Namer      generation.ClusterNamer
	Cluster    cluster.Func
}

// ClusterHandler handles ClusterBoard jobs. At most one run per board holds
// the board's lock; concurrent triggers observe contention and skip.
type ClusterHandler struct {
	deps         ClusterDeps
	lockTTL      time.Duration
	releaseGrace time.Duration
	logger       *slog.Logger
}

// NewClusterHandler creates a ClusterHandler. A nil deps.Cluster defaults to k-means.
func NewClusterHandler(deps ClusterDeps, lockTTL, releaseGrace time.Duration, logger *slog.Logger) *ClusterHandler {
	if deps.Cluster == nil {
		deps.Cluster = cluster.KMeans
	}
	return &ClusterHandler{deps: deps, lockTTL: lockTTL, releaseGrace: releaseGrace, logger: logger}
}

// Handle implements Handler.
func (h *ClusterHandler) Handle(ctx context.Context, job *Job) error {
	var p ClusterPayload
	if err := decodePayload(job, &p); err != nil {
		return err
	}

	log := logger.FromContextOrDefault(ctx, h.logger).With(slog.Int64("board_id", p.BoardID))
	key := lock.ClusterKey(p.BoardID)

	token, ok, err := h.deps.Locks.TryAcquire(ctx, key, h.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		log.Info("clustering already running for board, skipping")
		return nil
	}
	defer h.release(ctx, log, token)

	return h.run(ctx, log, p.BoardID)
}

// release frees the lock and waits out the grace period so an immediate
// re-trigger does not race the deletion.
func (h *ClusterHandler) release(ctx context.Context, log *slog.Logger, token lock.Token) {
	if err := h.deps.Locks.Release(context.WithoutCancel(ctx), token); err != nil {
		log.Warn("failed to release clustering lock; it expires with its TTL",
			slog.String("key", token.Key),
			slog.String("error", err.Error()))
	}
	if h.releaseGrace > 0 {
		sleepCtx(ctx, h.releaseGrace)
	}
}

// run executes the mark, load, cluster and commit steps while the lock is held.
// The board is unmarked on every exit path.
func (h *ClusterHandler) run(ctx context.Context, log *slog.Logger, boardID int64) (err error) {
	if err := h.deps.Boards.SetClustering(ctx, boardID, true); err != nil {
		if errors.Is(err, store.ErrBoardNotFound) {
			return Permanent(fmt.Errorf("mark board %d: %w", boardID, err))
		}
		return fmt.Errorf("mark board %d: %w", boardID, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if uerr := h.deps.Boards.SetClustering(context.WithoutCancel(ctx), boardID, false); uerr != nil {
			log.Error("failed to unmark board", slog.String("error", uerr.Error()))
			if err == nil {
				err = fmt.Errorf("unmark board %d: %w", boardID, uerr)
			}
		}
	}()

	items, err := h.deps.Items.ListEmbeddedByBoard(ctx, boardID)
	if err != nil {
		return fmt.Errorf("load embedded items of board %d: %w", boardID, err)
	}
	if len(items) == 0 {
		log.Info("no embedded items to cluster")
		return nil
	}

	k := cluster.K(len(items))
	if err := h.assign(ctx, items, k); err != nil {
		log.Error("clustering failed", slog.Int("k", k), slog.String("error", err.Error()))
		return nil
	}

	// Names are generated before the transaction so no AI call holds it open;
	// the labels are still replaced atomically in commit.
	labels, err := h.nameClusters(ctx, boardID, items, k)
	if err != nil {
		log.Error("cluster naming failed", slog.Int("k", k), slog.String("error", err.Error()))
		return nil
	}

	if err := h.commit(ctx, boardID, items, labels); err != nil {
		log.Error("failed to commit clustering", slog.String("error", err.Error()))
		return fmt.Errorf("commit clustering of board %d: %w", boardID, err)
	}
	committed = true

	log.Info("board clustered", slog.Int("items", len(items)), slog.Int("clusters", k))
	return nil
}

// assign runs the clustering function and records each item's cluster in memory.
func (h *ClusterHandler) assign(ctx context.Context, items []*domain.Item, k int) error {
	vectors := make([][]float32, len(items))
	for i, item := range items {
		vectors[i] = item.Embedding
	}

	assignments, err := h.deps.Cluster(ctx, vectors, k)
	if err != nil {
		return err
	}
	if len(assignments) != len(items) {
		return fmt.Errorf("cluster function returned %d assignments for %d items", len(assignments), len(items))
	}

	for i, c := range assignments {
		if c < 0 || c >= k {
			return fmt.Errorf("cluster index %d out of range [0, %d)", c, k)
		}
		items[i].AssignCluster(c)
	}
	return nil
}

// nameClusters generates one label per cluster index 0..k-1. Any failure
// aborts the run so a board never ends up with a partial label set.
func (h *ClusterHandler) nameClusters(
	ctx context.Context,
	boardID int64,
	items []*domain.Item,
	k int,
) ([]*domain.ClusterLabel, error) {
	samples := make([][]string, k)
	for _, item := range items {
		c := *item.ClusterID
		if len(samples[c]) < maxLabelSamples && item.Content != "" {
			samples[c] = append(samples[c], item.Content)
		}
	}

	labels := make([]*domain.ClusterLabel, 0, k)
	for c := 0; c < k; c++ {
		name, err := h.deps.Namer.NameCluster(ctx, samples[c])
		if err != nil {
			return nil, fmt.Errorf("name cluster %d: %w", c, err)
		}
		if name == "" {
			return nil, fmt.Errorf("name cluster %d: %w: empty label", c, generation.ErrInvalidResponse)
		}
		labels = append(labels, &domain.ClusterLabel{BoardID: boardID, ClusterID: c, Label: name})
	}
	return labels, nil
}

// commit replaces the board's labels, persists assignments and unmarks the
// board in one transaction.
func (h *ClusterHandler) commit(
	ctx context.Context,
	boardID int64,
	items []*domain.Item,
	labels []*domain.ClusterLabel,
) error {
	return h.deps.Transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		labelStore := h.deps.Labels.WithTx(tx)

		if err := labelStore.DeleteByBoard(ctx, boardID); err != nil {
			return err
		}
		if err := h.deps.Items.WithTx(tx).UpdateClusterAssignments(ctx, items); err != nil {
			return err
		}
		for _, label := range labels {
			if err := labelStore.Upsert(ctx, label); err != nil {
				return err
			}
		}
		return h.deps.Boards.WithTx(tx).SetClustering(ctx, boardID, false)
	})
}
