package cluster_test

import (
	"context"
	"testing"

	"github.com/phrazzld/moodboard-api/internal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestK(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, cluster.K(1))
	assert.Equal(t, 3, cluster.K(3))
	assert.Equal(t, 5, cluster.K(10))
}

func TestKMeans_SeparatesGroups(t *testing.T) {
	t.Parallel()

	vectors := [][]float32{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}

	got, err := cluster.KMeans(context.Background(), vectors, 2)
	require.NoError(t, err)
	require.Len(t, got, len(vectors))

	assert.Equal(t, got[0], got[1])
	assert.Equal(t, got[0], got[2])
	assert.Equal(t, got[3], got[4])
	assert.Equal(t, got[3], got[5])
	assert.NotEqual(t, got[0], got[3])
}

func TestKMeans_IndexesInRange(t *testing.T) {
	t.Parallel()

	vectors := make([][]float32, 10)
	for i := range vectors {
		vectors[i] = []float32{float32(i), float32(i * i % 7)}
	}

	got, err := cluster.KMeans(context.Background(), vectors, cluster.K(len(vectors)))
	require.NoError(t, err)
	for _, c := range got {
		assert.GreaterOrEqual(t, c, 0)
		assert.Less(t, c, 5)
	}
}

func TestKMeans_InvalidK(t *testing.T) {
	t.Parallel()

	vectors := [][]float32{{1}, {2}}
	_, err := cluster.KMeans(context.Background(), vectors, 0)
	assert.ErrorIs(t, err, cluster.ErrInvalidK)
	_, err = cluster.KMeans(context.Background(), vectors, 3)
	assert.ErrorIs(t, err, cluster.ErrInvalidK)
}
