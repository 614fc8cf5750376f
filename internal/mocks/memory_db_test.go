package mocks

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDB_RollsBackFailedTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := NewMemoryDB()
	boardID := db.AddBoard("b")
	itemID := db.AddItem(domain.Item{BoardID: boardID, Kind: domain.ItemKindText, Content: "x", Embedding: []float32{1}})

	boom := errors.New("boom")
	err := db.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		require.NoError(t, db.LabelStore().WithTx(tx).Upsert(ctx, &domain.ClusterLabel{BoardID: boardID, ClusterID: 0, Label: "l"}))
		require.NoError(t, db.ItemStore().WithTx(tx).Delete(ctx, itemID))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, db.Labels(boardID))
	_, ok := db.Item(itemID)
	assert.True(t, ok)
}

func TestMemoryDB_FailOn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := NewMemoryDB()
	boardID := db.AddBoard("b")

	db.FailOn("boards.SetClustering(true)", store.ErrUpdateFailed)
	assert.ErrorIs(t, db.BoardStore().SetClustering(ctx, boardID, true), store.ErrUpdateFailed)
	assert.NoError(t, db.BoardStore().SetClustering(ctx, boardID, false))

	db.FailOn("boards.SetClustering(true)", nil)
	assert.NoError(t, db.BoardStore().SetClustering(ctx, boardID, true))
	assert.Equal(t, []bool{false, true}, db.ClusteringHistory[boardID])
}

func TestMemoryItemStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := NewMemoryDB()
	items := db.ItemStore()
	id := db.AddItem(domain.Item{BoardID: 1, Kind: domain.ItemKindText, Content: "x"})

	require.NoError(t, items.Delete(ctx, id))
	require.NoError(t, items.Delete(ctx, id))
	_, err := items.GetByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestMemoryStatsStore(t *testing.T) {
	t.Parallel()
	db := NewMemoryDB()
	boardID := db.AddBoard("b")
	item := domain.Item{BoardID: boardID, Kind: domain.ItemKindText, Content: "x"}
	item.AssignCluster(2)
	db.AddItem(item)
	db.AddItem(item)
	db.SetLabel(domain.ClusterLabel{BoardID: boardID, ClusterID: 2, Label: "chairs"})

	stats, err := db.StatsStore().GetSystemStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.SystemStats{Boards: 1, Items: 2, Clusters: 1, Labels: 1}, stats)
}
