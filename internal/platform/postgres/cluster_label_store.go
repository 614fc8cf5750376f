package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// PostgresClusterLabelStore implements the store.ClusterLabelStore interface.
type PostgresClusterLabelStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresClusterLabelStore creates a new PostgreSQL implementation of the ClusterLabelStore interface.
func NewPostgresClusterLabelStore(db store.DBTX, logger *slog.Logger) *PostgresClusterLabelStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClusterLabelStore{
		db:     db,
		logger: logger.With(slog.String("component", "cluster_label_store")),
	}
}

var _ store.ClusterLabelStore = (*PostgresClusterLabelStore)(nil)

// DeleteByBoard implements store.ClusterLabelStore.DeleteByBoard
func (s *PostgresClusterLabelStore) DeleteByBoard(ctx context.Context, boardID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM cluster_labels WHERE board_id = $1`, boardID)
	if err != nil {
		log.Error("failed to delete cluster labels",
			slog.String("error", err.Error()),
			slog.Int64("board_id", boardID))
		return store.NewStoreError("cluster_label", "delete", "exec failed", MapError(err))
	}

	if n, err := result.RowsAffected(); err == nil {
		log.Debug("deleted cluster labels", slog.Int64("board_id", boardID), slog.Int64("count", n))
	}
	return nil
}

// Upsert implements store.ClusterLabelStore.Upsert
func (s *PostgresClusterLabelStore) Upsert(ctx context.Context, label *domain.ClusterLabel) error {
	if label.Label == "" {
		return fmt.Errorf("%w: label text cannot be empty", store.ErrInvalidEntity)
	}

	query := `
		INSERT INTO cluster_labels (board_id, cluster_id, label)
		VALUES ($1, $2, $3)
		ON CONFLICT (board_id, cluster_id) DO UPDATE SET label = EXCLUDED.label
	`
	if _, err := s.db.ExecContext(ctx, query, label.BoardID, label.ClusterID, label.Label); err != nil {
		return store.NewStoreError("cluster_label", "upsert", "exec failed", MapError(err))
	}
	return nil
}

// ListByBoard implements store.ClusterLabelStore.ListByBoard
func (s *PostgresClusterLabelStore) ListByBoard(ctx context.Context, boardID int64) ([]domain.ClusterLabel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT board_id, cluster_id, label FROM cluster_labels WHERE board_id = $1 ORDER BY cluster_id`,
		boardID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var labels []domain.ClusterLabel
	for rows.Next() {
		var l domain.ClusterLabel
		if err := rows.Scan(&l.BoardID, &l.ClusterID, &l.Label); err != nil {
			return nil, fmt.Errorf("failed to scan cluster label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// WithTx implements store.ClusterLabelStore.WithTx
func (s *PostgresClusterLabelStore) WithTx(tx *sql.Tx) store.ClusterLabelStore {
	return &PostgresClusterLabelStore{db: tx, logger: s.logger}
}
