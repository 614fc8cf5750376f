package task

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/moodboard-api/internal/backoff"
	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/generation"
	"github.com/phrazzld/moodboard-api/internal/mocks"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testImageURL = "https://images.example.com/lamp.png"

func testImagePolicy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts: 5,
		Unit:        time.Millisecond,
		Cap:         5 * time.Millisecond,
		Jitter:      func() float64 { return 0 },
	}
}

func newImageItem(db *mocks.MemoryDB) (boardID, itemID int64) {
	url := testImageURL
	boardID = db.AddBoard("lighting")
	itemID = db.AddItem(domain.Item{BoardID: boardID, Kind: domain.ItemKindImage, ImageURL: &url})
	return boardID, itemID
}

func imageJob(t *testing.T, itemID, boardID int64) *Job {
	return jobFor(t, JobTypeProcessImage, ImagePayload{ItemID: itemID, ImageURL: testImageURL, BoardID: boardID})
}

var lampAnalysis = &generation.ImageAnalysis{
	Description: "A brass floor lamp with a white linen shade beside a grey sofa",
	Caption:     "Brass floor lamp",
	Embedding:   []float32{0.4, 0.5, 0.6},
}

func TestImageHandler_StoresCaptionAndDescriptionEmbedding(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newImageItem(db)
	analyzer := &mocks.MockImageAnalyzer{Analysis: lampAnalysis}
	h := NewImageHandler(db.ItemStore(), analyzer, testImagePolicy(), logger.Discard())

	require.NoError(t, h.Handle(context.Background(), imageJob(t, itemID, boardID)))

	item, ok := db.Item(itemID)
	require.True(t, ok)
	assert.Equal(t, "Brass floor lamp", item.Content)
	assert.Equal(t, lampAnalysis.Embedding, item.Embedding)
	assert.Equal(t, []string{testImageURL}, analyzer.AnalyzeImageCalls.ImageURLs)
}

func TestImageHandler_SustainedRateLimitStopsAtMaxAttempts(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newImageItem(db)
	analyzer := &mocks.MockImageAnalyzer{Err: fmt.Errorf("analyze: %w", generation.ErrTransientFailure)}
	log, buf := logger.NewCaptureLogger()
	h := NewImageHandler(db.ItemStore(), analyzer, testImagePolicy(), log)

	err := h.Handle(context.Background(), imageJob(t, itemID, boardID))
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 5, analyzer.CallCount())
	assert.Equal(t, 5, buf.CountMessage("image analysis attempt failed"))

	_, exists := db.Item(itemID)
	assert.False(t, exists)
}

func TestImageHandler_NonRetryableFailureDeletesImmediately(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newImageItem(db)
	analyzer := &mocks.MockImageAnalyzer{Err: generation.ErrContentBlocked}
	h := NewImageHandler(db.ItemStore(), analyzer, testImagePolicy(), logger.Discard())

	err := h.Handle(context.Background(), imageJob(t, itemID, boardID))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
	assert.Equal(t, 1, analyzer.CallCount())

	_, exists := db.Item(itemID)
	assert.False(t, exists)
}

func TestImageHandler_RecoversFromTransientFailure(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newImageItem(db)
	calls := 0
	analyzer := &mocks.MockImageAnalyzer{
		AnalyzeImageFn: func(ctx context.Context, url string) (*generation.ImageAnalysis, error) {
			calls++
			if calls < 3 {
				return nil, generation.ErrTransientFailure
			}
			return lampAnalysis, nil
		},
	}
	h := NewImageHandler(db.ItemStore(), analyzer, testImagePolicy(), logger.Discard())

	require.NoError(t, h.Handle(context.Background(), imageJob(t, itemID, boardID)))
	assert.Equal(t, 3, calls)

	item, ok := db.Item(itemID)
	require.True(t, ok)
	assert.Equal(t, "Brass floor lamp", item.Content)
}

func TestImageHandler_PersistenceFailureIsRetriedThenDeletes(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newImageItem(db)
	db.FailOn("items.UpdateEnrichment", errors.New("connection refused"))
	h := NewImageHandler(db.ItemStore(), &mocks.MockImageAnalyzer{Analysis: lampAnalysis}, testImagePolicy(), logger.Discard())

	job := imageJob(t, itemID, boardID)
	err := h.Handle(context.Background(), job)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FailureInfrastructure, f.Kind)
	_, exists := db.Item(itemID)
	assert.True(t, exists, "item kept while the queue can still redeliver")

	job.Attempt = job.MaxAttempts
	err = h.Handle(context.Background(), job)
	assert.True(t, IsPermanent(err))
	_, exists = db.Item(itemID)
	assert.False(t, exists, "item deleted on the final delivery")
}

func TestImageHandler_PersistenceFailureThroughPoolDeletesItem(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newImageItem(db)
	db.FailOn("items.UpdateEnrichment", errors.New("connection refused"))

	broker := NewMemoryBroker()
	p := NewPool(broker, testPoolConfig(), logger.Discard())
	p.Register(JobTypeProcessImage, NewImageHandler(db.ItemStore(),
		&mocks.MockImageAnalyzer{Analysis: lampAnalysis}, testImagePolicy(), logger.Discard()))

	job, err := NewJob(JobTypeProcessImage, ImagePayload{ItemID: itemID, ImageURL: testImageURL, BoardID: boardID})
	require.NoError(t, err)
	job.RetryDelay = time.Millisecond
	require.NoError(t, broker.Enqueue(context.Background(), job))

	stop := startPool(t, p)
	defer stop()

	require.Eventually(t, func() bool {
		_, exists := db.Item(itemID)
		return !exists
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, db.DeleteCalls[itemID])
}

func TestImageHandler_EmptyCaptionDeletesItem(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID, itemID := newImageItem(db)
	analyzer := &mocks.MockImageAnalyzer{Analysis: &generation.ImageAnalysis{
		Description: "something",
		Embedding:   []float32{1},
	}}
	h := NewImageHandler(db.ItemStore(), analyzer, testImagePolicy(), logger.Discard())

	err := h.Handle(context.Background(), imageJob(t, itemID, boardID))
	assert.True(t, IsPermanent(err))
	_, exists := db.Item(itemID)
	assert.False(t, exists)
}

func TestImageHandler_MissingItemIsSuccess(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	boardID := db.AddBoard("gone")
	h := NewImageHandler(db.ItemStore(), &mocks.MockImageAnalyzer{Analysis: lampAnalysis}, testImagePolicy(), logger.Discard())

	assert.NoError(t, h.Handle(context.Background(), imageJob(t, 42, boardID)))
}

func TestImageHandler_InvalidURLIsPermanent(t *testing.T) {
	t.Parallel()
	db := mocks.NewMemoryDB()
	analyzer := &mocks.MockImageAnalyzer{}
	h := NewImageHandler(db.ItemStore(), analyzer, testImagePolicy(), logger.Discard())

	job := jobFor(t, JobTypeProcessImage, map[string]any{"item_id": 1, "image_url": "lamp.png", "board_id": 1})
	err := h.Handle(context.Background(), job)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.True(t, IsPermanent(err))
	assert.Zero(t, analyzer.CallCount())
}
