package segmentation

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"segmentcli/pkg/contracts/domain"
)

// Matrix is a row-major feature matrix, one row per customer
type Matrix [][]float64

// Rows returns the number of samples
func (m Matrix) Rows() int {
	return len(m)
}

// Cols returns the number of features
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Column returns a copy of column j
func (m Matrix) Column(j int) []float64 {
	col := make([]float64, len(m))
	for i, row := range m {
		col[i] = row[j]
	}
	return col
}

// Validate checks that every row has the same width
func (m Matrix) Validate() error {
	cols := m.Cols()
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), cols, ErrDimensionMismatch)
		}
	}
	return nil
}

// PrepareFeatures drops the client code and returns the six numeric features
// of every attribute row in domain.FeatureNames order
func PrepareFeatures(attrs []domain.CustomerAttributes) Matrix {
	m := make(Matrix, len(attrs))
	for i, a := range attrs {
		m[i] = a.Features()
	}
	return m
}

// Scaler holds per-column standardization parameters
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes the mean and population standard deviation of every
// column. A column with zero variance keeps a scale of 1.
func FitScaler(m Matrix) Scaler {
	cols := m.Cols()
	s := Scaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	for j := 0; j < cols; j++ {
		mean, std := stat.PopMeanStdDev(m.Column(j), nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

// Transform applies the scaler to a matrix, returning a new matrix
func (s Scaler) Transform(m Matrix) Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out
}

// Standardize fits a scaler on m and returns the standardized copy
func Standardize(m Matrix) (Matrix, Scaler) {
	s := FitScaler(m)
	return s.Transform(m), s
}
