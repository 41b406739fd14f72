package segmentation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// KMeansOptions configures a single k-means fit
type KMeansOptions struct {
	K       int
	Seed    int64
	NInit   int
	MaxIter int
	Tol     float64
}

// DefaultKMeansOptions returns the options used for every grid cell
func DefaultKMeansOptions(k int, seed int64) KMeansOptions {
	return KMeansOptions{
		K:       k,
		Seed:    seed,
		NInit:   DefaultNInit,
		MaxIter: DefaultMaxIter,
		Tol:     DefaultTolerance,
	}
}

// Model is a fitted k-means partition
type Model struct {
	Centers    Matrix
	Labels     []int
	Inertia    float64
	Iterations int
	Seed       int64
}

// Predict returns the index of the center closest to x
func (m *Model) Predict(x []float64) int {
	label, _ := nearest(x, m.Centers)
	return label
}

// FitKMeans partitions X into opts.K clusters. Centers are seeded with greedy
// k-means++ from a generator derived from opts.Seed, refined with Lloyd
// iterations, and the lowest-inertia run out of opts.NInit is kept.
func FitKMeans(ctx context.Context, X Matrix, opts KMeansOptions) (*Model, error) {
	if err := X.Validate(); err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		return nil, fmt.Errorf("invalid cluster count %d", opts.K)
	}
	if X.Rows() < opts.K {
		return nil, fmt.Errorf("n_samples=%d < n_clusters=%d: %w", X.Rows(), opts.K, ErrTooFewSamples)
	}
	if opts.NInit <= 0 {
		opts.NInit = 1
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)^0x9e3779b97f4a7c15))
	tol := tolerance(X, opts.Tol)

	var best *Model
	for run := 0; run < opts.NInit; run++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		centers := initPlusPlus(X, opts.K, rng)
		model := lloyd(X, centers, opts.MaxIter, tol)
		model.Seed = opts.Seed

		if best == nil || model.Inertia < best.Inertia {
			best = model
		}
	}
	return best, nil
}

// tolerance scales the relative tolerance by the mean column variance
func tolerance(X Matrix, tol float64) float64 {
	if tol == 0 {
		return 0
	}
	var sum float64
	for j := 0; j < X.Cols(); j++ {
		_, v := stat.PopMeanVariance(X.Column(j), nil)
		sum += v
	}
	return tol * sum / float64(X.Cols())
}

// initPlusPlus selects k initial centers with greedy k-means++
func initPlusPlus(X Matrix, k int, rng *rand.Rand) Matrix {
	n := X.Rows()
	trials := 2 + int(math.Log(float64(k)))

	centers := make(Matrix, 0, k)
	first := rng.IntN(n)
	centers = append(centers, clone(X[first]))

	closest := make([]float64, n)
	for i, x := range X {
		closest[i] = squaredDistance(x, centers[0])
	}
	potential := floats.Sum(closest)

	cumulative := make([]float64, n)
	for c := 1; c < k; c++ {
		floats.CumSum(cumulative, closest)

		bestCandidate := -1
		bestPotential := math.Inf(1)
		var bestDist []float64

		for t := 0; t < trials; t++ {
			target := rng.Float64() * potential
			idx := sort.SearchFloat64s(cumulative, target)
			if idx >= n {
				idx = n - 1
			}

			dist := make([]float64, n)
			for i, x := range X {
				dist[i] = math.Min(closest[i], squaredDistance(x, X[idx]))
			}
			if pot := floats.Sum(dist); pot < bestPotential {
				bestCandidate, bestPotential, bestDist = idx, pot, dist
			}
		}

		centers = append(centers, clone(X[bestCandidate]))
		closest = bestDist
		potential = bestPotential
	}
	return centers
}

// lloyd refines the centers until the labels stop changing, the center shift
// falls below tol, or maxIter is reached
func lloyd(X Matrix, centers Matrix, maxIter int, tol float64) *Model {
	n := X.Rows()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++

		changed := assign(X, centers, labels)
		if !changed && iter > 1 {
			break
		}

		updated := recompute(X, labels, len(centers))
		var shift float64
		for c := range centers {
			shift += squaredDistance(centers[c], updated[c])
		}
		centers = updated

		if shift <= tol {
			break
		}
	}

	assign(X, centers, labels)
	var inertia float64
	for i, x := range X {
		inertia += squaredDistance(x, centers[labels[i]])
	}

	return &Model{Centers: centers, Labels: labels, Inertia: inertia, Iterations: iter}
}

// assign labels every sample with its nearest center and reports whether any label changed
func assign(X Matrix, centers Matrix, labels []int) bool {
	changed := false
	for i, x := range X {
		label, _ := nearest(x, centers)
		if labels[i] != label {
			labels[i] = label
			changed = true
		}
	}
	return changed
}

// recompute returns the mean of every cluster. Empty clusters are moved onto
// the samples farthest from their current centers.
func recompute(X Matrix, labels []int, k int) Matrix {
	cols := X.Cols()
	sums := make(Matrix, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, cols)
	}
	for i, x := range X {
		floats.Add(sums[labels[i]], x)
		counts[labels[i]]++
	}

	var empty []int
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			empty = append(empty, c)
		}
	}

	if len(empty) > 0 {
		means := make(Matrix, k)
		for c := range sums {
			means[c] = clone(sums[c])
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), means[c])
			}
		}

		order := make([]int, len(X))
		dist := make([]float64, len(X))
		for i, x := range X {
			order[i] = i
			dist[i] = squaredDistance(x, means[labels[i]])
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] > dist[order[b]] })

		next := 0
		for _, c := range empty {
			// a point alone in its cluster cannot move without emptying it
			for next < len(order) && counts[labels[order[next]]] <= 1 {
				next++
			}
			if next >= len(order) {
				break
			}
			far := order[next]
			next++
			old := labels[far]
			floats.Sub(sums[old], X[far])
			counts[old]--
			floats.Add(sums[c], X[far])
			counts[c]++
			labels[far] = c
		}
	}

	centers := make(Matrix, k)
	for c := range sums {
		centers[c] = clone(sums[c])
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), centers[c])
		}
	}
	return centers
}

func nearest(x []float64, centers Matrix) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := squaredDistance(x, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
