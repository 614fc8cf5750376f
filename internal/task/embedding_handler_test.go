package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/generation"
	"github.com/phrazzld/moodboard-api/internal/mocks"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextItem(db *mocks.MemoryDB) (boardID, itemID int64) {
	boardID = db.AddBoard("kitchen")
	itemID = db.AddItem(domain.Item{BoardID: boardID, Kind: domain.ItemKindText, Content: "oak table"})
	return boardID, itemID
}

func embeddingJob(t *testing.T, itemID, boardID int64) *Job {
	return jobFor(t, JobTypeGenerateEmbedding, EmbeddingPayload{ItemID: itemID, Content: "oak table", BoardID: boardID})
}

func TestEmbeddingHandler_StoresEmbedding(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newTextItem(db)
	embedder := &mocks.MockEmbedder{Embedding: []float32{0.1, 0.2, 0.3}}
	h := NewEmbeddingHandler(db.ItemStore(), embedder, logger.Discard())

	require.NoError(t, h.Handle(context.Background(), embeddingJob(t, itemID, boardID)))

	item, ok := db.Item(itemID)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, item.Embedding)
	assert.Equal(t, []string{"oak table"}, embedder.EmbedTextCalls.Texts)
}

func TestEmbeddingHandler_EmbeddingFailureDeletesItem(t *testing.T) {
	t.Parallel()

	for _, cause := range []error{
		generation.ErrContentBlocked,
		fmt.Errorf("embed: %w", generation.ErrTransientFailure),
		generation.ErrInvalidResponse,
	} {
		t.Run(cause.Error(), func(t *testing.T) {
			t.Parallel()
			db := mocks.NewMemoryDB()
			boardID, itemID := newTextItem(db)
			h := NewEmbeddingHandler(db.ItemStore(), &mocks.MockEmbedder{Err: cause}, logger.Discard())

			err := h.Handle(context.Background(), embeddingJob(t, itemID, boardID))
			require.Error(t, err)
			assert.True(t, IsPermanent(err), "a deleted item must not be retried")
			assert.ErrorIs(t, err, cause)

			var f *Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, FailureUnrecoverable, f.Kind)

			_, exists := db.Item(itemID)
			assert.False(t, exists)
		})
	}
}

func TestEmbeddingHandler_CompensatingDeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newTextItem(db)
	h := NewEmbeddingHandler(db.ItemStore(), &mocks.MockEmbedder{Err: generation.ErrGenerationFailed}, logger.Discard())
	job := embeddingJob(t, itemID, boardID)

	err := h.Handle(context.Background(), job)
	assert.True(t, IsPermanent(err))

	// A redelivered job deletes again without a delete error.
	err = h.Handle(context.Background(), job)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 2, db.DeleteCalls[itemID])

	require.NoError(t, db.ItemStore().Delete(context.Background(), itemID))
}

func TestEmbeddingHandler_PersistenceFailureDeletesItem(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newTextItem(db)
	db.FailOn("items.UpdateEmbedding", errors.New("connection reset"))
	h := NewEmbeddingHandler(db.ItemStore(), &mocks.MockEmbedder{Embedding: []float32{1}}, logger.Discard())

	err := h.Handle(context.Background(), embeddingJob(t, itemID, boardID))
	assert.True(t, IsPermanent(err))
	_, exists := db.Item(itemID)
	assert.False(t, exists)
}

func TestEmbeddingHandler_MissingItemIsSuccess(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID := db.AddBoard("empty")
	log, buf := logger.NewCaptureLogger()
	h := NewEmbeddingHandler(db.ItemStore(), &mocks.MockEmbedder{Embedding: []float32{1}}, log)

	require.NoError(t, h.Handle(context.Background(), embeddingJob(t, 999, boardID)))
	assert.Equal(t, 1, buf.CountMessage("item no longer exists, nothing to enrich"))
	assert.Zero(t, db.DeleteCalls[999])
}

func TestEmbeddingHandler_DeleteFailureIsReturnedToQueue(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newTextItem(db)
	db.FailOn("items.Delete", store.ErrDeleteFailed)
	h := NewEmbeddingHandler(db.ItemStore(), &mocks.MockEmbedder{Err: generation.ErrContentBlocked}, logger.Discard())

	err := h.Handle(context.Background(), embeddingJob(t, itemID, boardID))
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, store.ErrDeleteFailed)
	_, exists := db.Item(itemID)
	assert.True(t, exists)
}

func TestEmbeddingHandler_CancellationKeepsItem(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newTextItem(db)
	embedder := &mocks.MockEmbedder{
		EmbedTextFn: func(ctx context.Context, text string) ([]float32, error) {
			return nil, ctx.Err()
		},
	}
	h := NewEmbeddingHandler(db.ItemStore(), embedder, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Handle(ctx, embeddingJob(t, itemID, boardID))
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, context.Canceled)
	_, exists := db.Item(itemID)
	assert.True(t, exists)
}

func TestEmbeddingHandler_InvalidPayload(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	embedder := &mocks.MockEmbedder{}
	h := NewEmbeddingHandler(db.ItemStore(), embedder, logger.Discard())

	job := newTestJob(JobTypeGenerateEmbedding, 3, 0)
	err := h.Handle(context.Background(), job)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.True(t, IsPermanent(err))
	assert.Zero(t, embedder.CallCount())
}
