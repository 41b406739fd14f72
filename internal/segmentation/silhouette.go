package segmentation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SilhouetteScore returns the mean silhouette coefficient of all samples using
// Euclidean distance. Values range from -1 to 1, higher is better.
func SilhouetteScore(X Matrix, labels []int) (float64, error) {
	if err := X.Validate(); err != nil {
		return 0, err
	}
	if len(labels) != X.Rows() {
		return 0, fmt.Errorf("%d labels for %d samples: %w", len(labels), X.Rows(), ErrDimensionMismatch)
	}
	if X.Rows() < 3 {
		return 0, fmt.Errorf("%d samples: %w", X.Rows(), ErrInvalidLabelCount)
	}
	return silhouette(distancesFor(X), labels)
}

// maxCachedDistanceRows bounds the sample count whose full distance matrix is
// kept in memory (about 50 MB of float64 at the limit). Larger inputs compute
// each distance on demand.
const maxCachedDistanceRows = 2500

// distanceFunc returns the Euclidean distance between samples i and j
type distanceFunc func(i, j int) float64

// distancesFor precomputes the distance matrix of X when it fits under
// maxCachedDistanceRows and falls back to on-demand distances otherwise
func distancesFor(X Matrix) distanceFunc {
	if X.Rows() <= maxCachedDistanceRows {
		return PairwiseDistances(X).At
	}
	return func(i, j int) float64 {
		return floats.Distance(X[i], X[j], 2)
	}
}

// PairwiseDistances returns the symmetric Euclidean distance matrix of X
func PairwiseDistances(X Matrix) *mat.SymDense {
	n := X.Rows()
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, floats.Distance(X[i], X[j], 2))
		}
	}
	return d
}

// silhouette scores labels against the sample distances. A sample alone in
// its cluster scores 0.
func silhouette(dist distanceFunc, labels []int) (float64, error) {
	n := len(labels)

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) > n-1 {
		return 0, fmt.Errorf("got %d distinct labels for %d samples: %w", len(sizes), n, ErrInvalidLabelCount)
	}

	ids := make([]int, 0, len(sizes))
	index := make(map[int]int, len(sizes))
	for l := range sizes {
		index[l] = len(ids)
		ids = append(ids, l)
	}

	sums := make([]float64, len(ids))
	var total float64
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if i != j {
				sums[index[labels[j]]] += dist(i, j)
			}
		}

		own := labels[i]
		if sizes[own] <= 1 {
			continue
		}

		a := sums[index[own]] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, l := range ids {
			if l == own {
				continue
			}
			b = math.Min(b, sums[c]/float64(sizes[l]))
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}

	return total / float64(n), nil
}
