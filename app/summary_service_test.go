package app

import (
	"errors"
	"math"
	"testing"

	"jtpadensity/domain/core"
	"jtpadensity/domain/dataset"
	"jtpadensity/domain/summary"
	"jtpadensity/internal"
	apperrors "jtpadensity/internal/errors"
	"jtpadensity/internal/testkit"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourRowDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"income", "instrument", "treatment", "hsorged"},
		{"1", "0", "0", "1"},
		{"2", "0", "1", "0"},
		{"3", "1", "0", "1"},
		{"4", "1", "1", "0"},
	}, nil)
	require.NoError(t, err)
	return ds
}

func TestBuildSummaryTable_FourRowScenario(t *testing.T) {
	svc := NewSummaryService(internal.NewNopLogger())

	table, err := svc.BuildSummaryTable(fourRowDataset(t), []string{"income", "hsorged"})
	require.NoError(t, err)

	assert.Equal(t, []string{"income", "hsorged", dataset.ColConstant}, table.Rows)

	income, ok := table.Row("income")
	require.True(t, ok)
	assert.Equal(t, []float64{2.5, 1.5, 3.5, 2.0, 3.0}, income)

	hs, _ := table.Row("hsorged")
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 1, 0}, hs)

	assert.Equal(t, []float64{4, 2, 2, 2, 2}, table.Counts())

	v, err := table.Value("income", "instrument1")
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

func TestBuildSummaryTable_MatchesSubsetMeans(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.DefaultJTPAConfig())
	svc := NewSummaryService(internal.NewNopLogger())

	table, err := svc.BuildSummaryTable(ds, dataset.DefaultCovariates)
	require.NoError(t, err)
	require.Len(t, table.Rows, len(dataset.DefaultCovariates)+1)
	require.Len(t, table.Subsets, 5)

	for j, subset := range summary.StandardSubsets {
		part, err := ds.Where(subset.Filter)
		require.NoError(t, err)

		for i, col := range dataset.DefaultCovariates {
			values, err := part.Column(col)
			require.NoError(t, err)
			mean, err := stats.Mean(values)
			require.NoError(t, err)
			want := roundCell(mean)
			assert.Equal(t, want, table.Cells[i][j], "column %s subset %s", col, subset.Key)
		}
		assert.Equal(t, float64(part.Nrow()), table.Counts()[j], "count for subset %s", subset.Key)
	}
}

func TestBuildSummaryTable_CountPartitions(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.DefaultJTPAConfig())
	table, err := NewSummaryService(internal.NewNopLogger()).BuildSummaryTable(ds, dataset.DefaultCovariates)
	require.NoError(t, err)

	counts := table.Counts()
	assert.Equal(t, float64(ds.Nrow()), counts[0])
	assert.Equal(t, counts[0], counts[1]+counts[2], "instrument subsets partition the sample")
	assert.Equal(t, counts[0], counts[3]+counts[4], "treatment subsets partition the sample")
}

func TestBuildSummaryTable_RoundingIsIdempotent(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.DefaultJTPAConfig())
	table, err := NewSummaryService(internal.NewNopLogger()).BuildSummaryTable(ds, dataset.DefaultCovariates)
	require.NoError(t, err)

	for i := range table.Cells {
		for j, v := range table.Cells[i] {
			again, err := stats.Round(v, 2)
			require.NoError(t, err)
			assert.Equal(t, v, again, "cell (%d,%d)", i, j)
			assert.InDelta(t, math.Round(v*100)/100, v, 1e-9)
		}
	}
}

func TestRoundCellHalfToEven(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{-0.125, -0.12},
		{0.625, 0.62},
		{0.126, 0.13},
		{0.3333, 0.33},
		{2, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundCell(tt.in), "round %v", tt.in)
	}
	assert.True(t, math.IsNaN(roundCell(math.NaN())))
}

func TestBuildSummaryTable_TiesRoundToEven(t *testing.T) {
	// 1/8 of the rows are married, an exact tie at two decimals
	married := []float64{1, 0, 0, 0, 0, 0, 0, 0}
	zeros := make([]float64, 8)
	ds, err := dataset.FromColumns(
		[]string{dataset.ColMarried, dataset.ColInstrument, dataset.ColTreatment},
		map[string][]float64{dataset.ColMarried: married, dataset.ColInstrument: zeros, dataset.ColTreatment: zeros},
	)
	require.NoError(t, err)

	table, err := NewSummaryService(internal.NewNopLogger()).BuildSummaryTable(ds, []string{dataset.ColMarried})
	require.NoError(t, err)
	assert.Equal(t, 0.12, table.Cells[0][0])
}

func TestBuildSummaryTable_EmptySubsetIsNaN(t *testing.T) {
	ds, err := dataset.FromRecords([][]string{
		{"income", "instrument", "treatment"},
		{"10", "0", "0"},
		{"20", "1", "0"},
	}, nil)
	require.NoError(t, err)

	table, err := NewSummaryService(internal.NewNopLogger()).BuildSummaryTable(ds, []string{"income"})
	require.NoError(t, err)

	income, _ := table.Row("income")
	assert.Equal(t, 15.0, income[0])
	assert.Equal(t, 15.0, income[3])
	assert.True(t, math.IsNaN(income[4]), "treatment=1 has no rows")
	assert.Equal(t, []float64{2, 1, 1, 2, 0}, table.Counts())
}

func TestBuildSummaryTable_MissingColumn(t *testing.T) {
	_, err := NewSummaryService(internal.NewNopLogger()).BuildSummaryTable(fourRowDataset(t), []string{"income", "male"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
	assert.True(t, errors.Is(err, core.ErrMissingColumn))

	_, err = NewSummaryService(nil).BuildSummaryTable(nil, nil)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}

func TestBuildSummaryTable_InputConstantColumnIgnored(t *testing.T) {
	ds, err := dataset.FromRecords([][]string{
		{"income", "instrument", "treatment", "constant"},
		{"1", "0", "0", "0"},
		{"2", "0", "1", "0"},
		{"3", "1", "0", "0"},
		{"4", "1", "1", "0"},
	}, nil)
	require.NoError(t, err)

	table, err := NewSummaryService(internal.NewNopLogger()).BuildSummaryTable(ds, []string{"income"})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 2, 2, 2, 2}, table.Counts())
}
