package postgres

import (
	"context"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// PostgresStatsStore implements the store.StatsStore interface.
type PostgresStatsStore struct {
	db store.DBTX
}

// NewPostgresStatsStore creates a new PostgresStatsStore.
func NewPostgresStatsStore(db store.DBTX) *PostgresStatsStore {
	return &PostgresStatsStore{db: db}
}

var _ store.StatsStore = (*PostgresStatsStore)(nil)

// GetSystemStats implements store.StatsStore.GetSystemStats
func (s *PostgresStatsStore) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM boards),
			(SELECT COUNT(*) FROM items),
			(SELECT COUNT(DISTINCT (board_id, cluster_id)) FROM items WHERE cluster_id IS NOT NULL),
			(SELECT COUNT(*) FROM cluster_labels)
	`

	var stats domain.SystemStats
	if err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.Boards,
		&stats.Items,
		&stats.Clusters,
		&stats.Labels,
	); err != nil {
		return nil, MapError(err)
	}
	return &stats, nil
}
