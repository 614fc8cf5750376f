// Package cluster partitions embedding vectors into k groups.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// MaxClusters bounds k for a board.
const MaxClusters = 5

// ErrInvalidK is returned when k is not in [1, len(vectors)].
var ErrInvalidK = errors.New("invalid cluster count")

// Func assigns each vector a cluster index in [0, k). The returned slice is
// parallel to vectors.
type Func func(ctx context.Context, vectors [][]float32, k int) ([]int, error)

// K returns the number of clusters used for n items.
func K(n int) int {
	return min(MaxClusters, n)
}

// KMeans is the default Func, backed by Lloyd's algorithm.
func KMeans(ctx context.Context, vectors [][]float32, k int) ([]int, error) {
	if k < 1 || k > len(vectors) {
		return nil, fmt.Errorf("%w: k=%d for %d vectors", ErrInvalidK, k, len(vectors))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dataset := make(clusters.Observations, len(vectors))
	for i, v := range vectors {
		coords := make(clusters.Coordinates, len(v))
		for j, x := range v {
			coords[j] = float64(x)
		}
		dataset[i] = coords
	}

	partition, err := kmeans.New().Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans partition: %w", err)
	}

	assignments := make([]int, len(dataset))
	for i, obs := range dataset {
		assignments[i] = partition.Nearest(obs)
	}
	return assignments, nil
}
