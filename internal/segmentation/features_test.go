package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"segmentcli/pkg/contracts/domain"
)

func TestPrepareFeatures(t *testing.T) {
	attrs := []domain.CustomerAttributes{
		{ClientCode: "A", Recency: 1, TicketCount: 2, AMS: true, CMS: false, CustomerInteractions: 3, AgentInteractions: 4},
		{ClientCode: "B", Recency: 5, TicketCount: 6, AMS: false, CMS: true, CustomerInteractions: 7, AgentInteractions: 8},
	}

	m := PrepareFeatures(attrs)
	require.NoError(t, m.Validate())
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, len(domain.FeatureNames), m.Cols())
	assert.Equal(t, Matrix{{1, 2, 1, 0, 3, 4}, {5, 6, 0, 1, 7, 8}}, m)
}

func TestStandardize(t *testing.T) {
	m := Matrix{
		{1, 10, 3},
		{2, 20, 3},
		{3, 30, 3},
		{4, 40, 3},
	}

	std, scaler := Standardize(m)
	require.Equal(t, m.Rows(), std.Rows())

	for j := 0; j < 2; j++ {
		mean, sd := stat.PopMeanStdDev(std.Column(j), nil)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, sd, 1e-12)
	}

	// zero-variance columns keep a unit scale and collapse to zero
	assert.Equal(t, 1.0, scaler.Scale[2])
	for _, v := range std.Column(2) {
		assert.Equal(t, 0.0, v)
	}

	// the input matrix is not modified
	assert.Equal(t, 1.0, m[0][0])
}

func TestStandardizeIsIdempotent(t *testing.T) {
	m := PrepareFeatures(BuildAttributes(FilterCustomers(segmentedTable().Records)))

	once, _ := Standardize(m)
	twice, _ := Standardize(once)

	for j := 0; j < twice.Cols(); j++ {
		mean, sd := stat.PopMeanStdDev(twice.Column(j), nil)
		assert.InDelta(t, 0, mean, 1e-9)
		if sd != 0 {
			assert.InDelta(t, 1, sd, 1e-9)
		}
		for i := range once {
			assert.InDelta(t, once[i][j], twice[i][j], 1e-9)
		}
	}
}

func TestMatrixValidate(t *testing.T) {
	assert.NoError(t, Matrix{}.Validate())
	assert.ErrorIs(t, Matrix{{1, 2}, {3}}.Validate(), ErrDimensionMismatch)
}
