package segmentation

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"segmentcli/pkg/contracts/domain"
)

// ProgressFunc is called after every evaluated grid cell
type ProgressFunc func(done, total int)

// FeatureSet is one candidate matrix of the selection grid
type FeatureSet struct {
	Space  domain.FeatureSpace
	Matrix Matrix
}

// Selection is the winning configuration of the grid. It is replaced as a
// whole whenever a strictly better score is found.
type Selection struct {
	Score  float64
	Seed   int64
	Space  domain.FeatureSpace
	Matrix Matrix
	Labels []int
	Model  *Model
}

// Evaluation is the outcome of one grid cell
type Evaluation struct {
	Set   int
	Seed  int64
	Score float64
	Model *Model
}

// improve returns the accumulator updated with e when e strictly beats it
func (s Selection) improve(e Evaluation, sets []FeatureSet) Selection {
	if e.Score <= s.Score {
		return s
	}
	return Selection{
		Score:  e.Score,
		Seed:   e.Seed,
		Space:  sets[e.Set].Space,
		Matrix: sets[e.Set].Matrix,
		Labels: e.Model.Labels,
		Model:  e.Model,
	}
}

// SelectClusters fits cfg.ClusterCount clusters on every feature set for every
// seed in cfg.SeedStart..cfg.SeedEnd, scores each fit with the silhouette
// coefficient on the same matrix, and returns the best configuration. Cells are
// reduced in grid order so the first maximum wins regardless of cfg.Workers.
func SelectClusters(ctx context.Context, sets []FeatureSet, cfg Config, progress ProgressFunc) (Selection, error) {
	if err := cfg.Validate(); err != nil {
		return Selection{}, err
	}
	if len(sets) == 0 {
		return Selection{}, fmt.Errorf("no feature sets to search")
	}

	distances := make([]distanceFunc, len(sets))
	for i, set := range sets {
		if err := set.Matrix.Validate(); err != nil {
			return Selection{}, fmt.Errorf("%s features: %w", set.Space, err)
		}
		if set.Matrix.Rows() < cfg.ClusterCount {
			return Selection{}, fmt.Errorf("%s features: n_samples=%d < n_clusters=%d: %w",
				set.Space, set.Matrix.Rows(), cfg.ClusterCount, ErrTooFewSamples)
		}
		distances[i] = distancesFor(set.Matrix)
	}

	seeds := cfg.Seeds()
	total := len(sets) * seeds
	results := make([]Evaluation, total)
	var done atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for cell := 0; cell < total; cell++ {
		set := cell / seeds
		seed := cfg.SeedStart + int64(cell%seeds)

		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			opts := KMeansOptions{
				K:       cfg.ClusterCount,
				Seed:    seed,
				NInit:   cfg.NInit,
				MaxIter: cfg.MaxIter,
				Tol:     cfg.Tolerance,
			}
			model, err := FitKMeans(gctx, sets[set].Matrix, opts)
			if err != nil {
				return fmt.Errorf("fit %s seed %d: %w", sets[set].Space, seed, err)
			}

			score, err := silhouette(distances[set], model.Labels)
			if err != nil {
				return fmt.Errorf("score %s seed %d: %w", sets[set].Space, seed, err)
			}

			results[cell] = Evaluation{Set: set, Seed: seed, Score: score, Model: model}

			n := done.Add(1)
			if progress != nil {
				progress(int(n), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Selection{}, err
	}
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}

	return reduce(results, sets, cfg.Baseline)
}

// reduce folds the evaluations in grid order, keeping strict improvements only
func reduce(results []Evaluation, sets []FeatureSet, baseline float64) (Selection, error) {
	best := Selection{Score: baseline}
	for _, e := range results {
		if e.Model == nil {
			continue
		}
		best = best.improve(e, sets)
	}

	if best.Model == nil {
		return Selection{}, fmt.Errorf("baseline %.4f: %w", baseline, ErrNoViableClustering)
	}
	return best, nil
}
