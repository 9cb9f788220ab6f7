package app

import (
	"context"
	"errors"
	"testing"

	"jtpadensity/domain/core"
	"jtpadensity/domain/dataset"
	"jtpadensity/domain/density"
	"jtpadensity/domain/plotspec"
	"jtpadensity/internal"
	apperrors "jtpadensity/internal/errors"
	"jtpadensity/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEstimator is a testify mock of ports.DensityEstimator
type MockEstimator struct {
	mock.Mock
}

func (m *MockEstimator) Estimate(ctx context.Context, req density.Request) (*density.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*density.Result)
	return res, args.Error(1)
}

func (m *MockEstimator) ConfidenceBand(ctx context.Context, res *density.Result, uniform bool) ([]density.Interval, error) {
	args := m.Called(ctx, res, uniform)
	band, _ := args.Get(0).([]density.Interval)
	return band, args.Error(1)
}

func TestAssemble_ThreeRibbonsThenThreeLines(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.DefaultJTPAConfig())
	stub := testkit.NewStubEstimator()
	svc := NewDensityService(stub, DefaultDensityOptions(), internal.NewNopLogger())

	asm, err := svc.Assemble(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, asm.Fits, 3)

	grid := density.DefaultGrid()
	for i, fit := range asm.Fits {
		assert.Equal(t, density.EducationSubsets[i].Key, fit.Subset.Key, "fits keep plotting order")
		require.Len(t, fit.Records, len(grid))
		for j, r := range fit.Records {
			assert.Equal(t, grid[j], r.Grid)
			assert.LessOrEqual(t, r.CIL, r.FQ)
			assert.LessOrEqual(t, r.FQ, r.CIR)
		}
	}

	layers := asm.Spec.Layers()
	require.Len(t, layers, 6)
	wantAlpha := []float64{0.2, 0.4, 0.6}
	for i := 0; i < 3; i++ {
		assert.Equal(t, plotspec.KindRibbon, layers[i].Kind)
		assert.Equal(t, wantAlpha[i], layers[i].Alpha)
		assert.Equal(t, plotspec.KindLine, layers[i+3].Kind)
		assert.Equal(t, []float64(grid), layers[i+3].X)
	}
	assert.Equal(t, asm.Fits[1].Records[4].FP, layers[4].Y[4])

	assert.Equal(t, []string{"all", "hsged", "nohsged"}, stub.Calls())
	assert.Len(t, asm.Records(), 3)
}

func TestRequests_WeightsFollowEducation(t *testing.T) {
	ds, err := dataset.FromRecords([][]string{
		{"logincome", "treatment", "hsorged"},
		{"2.5", "0", "1"},
		{"3.0", "1", "1"},
		{"3.5", "0", "0"},
		{"4.0", "0", "1"},
	}, nil)
	require.NoError(t, err)

	reqs, err := NewDensityService(testkit.NewStubEstimator(), DefaultDensityOptions(), internal.NewNopLogger()).Requests(ds)
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	for _, r := range reqs {
		assert.Equal(t, []float64{2.5, 3.5, 4.0}, r.Sample, "treatment = 0 rows only")
		assert.Equal(t, density.RuleIMSEDPI, r.Rule)
	}
	assert.Nil(t, reqs[0].Weights)
	assert.Equal(t, []float64{1, 0, 1}, reqs[1].Weights)
	assert.Equal(t, []float64{0, 1, 0}, reqs[2].Weights)

	_, err = NewDensityService(testkit.NewStubEstimator(), DefaultDensityOptions(), nil).Requests(fourRowDataset(t))
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err), "logincome is required")
}

func TestAssemble_EstimatorFailureAborts(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.DefaultJTPAConfig())
	stub := testkit.NewStubEstimator()
	stub.Fail = map[string]error{"nohsged": core.ErrSingularDesign}

	asm, err := NewDensityService(stub, DefaultDensityOptions(), internal.NewNopLogger()).Assemble(context.Background(), ds)
	require.Error(t, err)
	assert.Nil(t, asm)
	assert.Equal(t, apperrors.CodeEstimationFailed, apperrors.GetCode(err))
	assert.True(t, errors.Is(err, core.ErrSingularDesign))
}

func TestAssemble_PassesUniformFlag(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.JTPAConfig{N: 300, Seed: 3})
	grid, err := density.NewGrid(2, 5, 3)
	require.NoError(t, err)

	res := &density.Result{Points: []density.Point{{Grid: 2, FQ: 0.1}, {Grid: 3.5, FQ: 0.5}, {Grid: 5, FQ: 0.1}}}
	band := []density.Interval{{Lower: 0, Upper: 0.2}, {Lower: 0.4, Upper: 0.6}, {Lower: 0, Upper: 0.2}}

	est := new(MockEstimator)
	est.On("Estimate", mock.Anything, mock.MatchedBy(func(r density.Request) bool { return len(r.Grid) == 3 })).Return(res, nil).Times(3)
	est.On("ConfidenceBand", mock.Anything, res, false).Return(band, nil).Times(3)

	svc := NewDensityService(est, DensityOptions{Grid: grid, Rule: density.RuleMSEROT, Uniform: false}, internal.NewNopLogger())
	asm, err := svc.Assemble(context.Background(), ds)
	require.NoError(t, err)
	est.AssertExpectations(t)

	fit, ok := asm.Fit("hsged")
	require.True(t, ok)
	assert.Equal(t, 0.4, fit.Records[1].CIL)
	assert.Equal(t, 3, asm.Spec.Count(plotspec.KindRibbon))
}

func TestAssemble_BandLengthMismatch(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.JTPAConfig{N: 300, Seed: 3})
	res := &density.Result{Points: []density.Point{{Grid: 2}}}

	est := new(MockEstimator)
	est.On("Estimate", mock.Anything, mock.Anything).Return(res, nil)
	est.On("ConfidenceBand", mock.Anything, res, true).Return([]density.Interval{}, nil)

	_, err := NewDensityService(est, DefaultDensityOptions(), internal.NewNopLogger()).Assemble(context.Background(), ds)
	assert.Equal(t, apperrors.CodeEstimationFailed, apperrors.GetCode(err))
}
