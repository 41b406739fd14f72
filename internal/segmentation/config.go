package segmentation

import (
	"fmt"

	"segmentcli/internal/config"
)

const (
	DefaultClusterCount = config.DefaultClusterCount
	DefaultSeedStart    = config.DefaultSeedStart
	DefaultSeedEnd      = config.DefaultSeedEnd
	DefaultNInit        = config.DefaultKMeansInit
	DefaultMaxIter      = config.DefaultKMeansMaxIter
	DefaultTolerance    = config.DefaultKMeansTolerance
)

// Config controls the cluster selection grid
type Config struct {
	ClusterCount int
	SeedStart    int64
	SeedEnd      int64
	NInit        int
	MaxIter      int
	Tolerance    float64
	Workers      int

	// Baseline is the score a configuration must strictly exceed to be selected
	Baseline float64
}

// DefaultConfig returns five clusters searched over seeds 1..299
func DefaultConfig() Config {
	return Config{
		ClusterCount: DefaultClusterCount,
		SeedStart:    DefaultSeedStart,
		SeedEnd:      DefaultSeedEnd,
		NInit:        DefaultNInit,
		MaxIter:      DefaultMaxIter,
		Tolerance:    DefaultTolerance,
		Workers:      1,
		Baseline:     0,
	}
}

// NewConfig builds a selector configuration from application settings
func NewConfig(s config.SegmentationConfig) Config {
	return Config{
		ClusterCount: s.ClusterCount,
		SeedStart:    s.SeedStart,
		SeedEnd:      s.SeedEnd,
		NInit:        s.KMeansInit,
		MaxIter:      s.KMeansMaxIter,
		Tolerance:    s.KMeansTolerance,
		Workers:      s.Workers,
		Baseline:     s.BaselineScore,
	}
}

// Validate checks the grid bounds
func (c Config) Validate() error {
	if c.ClusterCount < 2 {
		return fmt.Errorf("cluster count must be at least 2, got %d", c.ClusterCount)
	}
	if c.SeedEnd < c.SeedStart {
		return fmt.Errorf("seed range %d..%d is empty", c.SeedStart, c.SeedEnd)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Seeds returns the number of seeds in the grid
func (c Config) Seeds() int {
	return int(c.SeedEnd - c.SeedStart + 1)
}
