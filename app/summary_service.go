package app

import (
	"errors"
	"math"

	"jtpadensity/domain/core"
	"jtpadensity/domain/dataset"
	"jtpadensity/domain/summary"
	"jtpadensity/internal"
	apperrors "jtpadensity/internal/errors"

	"github.com/montanaflynn/stats"
)

// SummaryService builds the stratified descriptive-statistics table
type SummaryService struct {
	logger *internal.Logger
}

// NewSummaryService creates a summary service
func NewSummaryService(logger *internal.Logger) *SummaryService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SummaryService{logger: logger}
}

// BuildSummaryTable computes per-subset means of each column over the five standard subsets.
// The synthetic constant column is appended as the last row and reports subset row counts.
// Empty subsets yield NaN means; NaN cells in the data propagate to the cells that use them.
func (s *SummaryService) BuildSummaryTable(ds *dataset.Dataset, columns []string) (*summary.Table, error) {
	return s.build(ds, columns, summary.StandardSubsets)
}

func (s *SummaryService) build(ds *dataset.Dataset, columns []string, subsets []summary.Subset) (*summary.Table, error) {
	if ds == nil {
		return nil, apperrors.InvalidInput("dataset is required")
	}
	for _, col := range append(append([]string{}, columns...), dataset.ColInstrument, dataset.ColTreatment) {
		if !ds.HasColumn(col) {
			return nil, apperrors.WithCode(apperrors.CodeInvalidInput,
				apperrors.Wrap(core.NewMissingColumnError(col), "summary table input is incomplete"))
		}
	}

	withOnes := ds.WithConstant()
	rows := append(append([]string{}, columns...), dataset.ColConstant)
	last := len(rows) - 1

	cells := make([][]float64, len(rows))
	for i := range cells {
		cells[i] = make([]float64, len(subsets))
	}

	for j, subset := range subsets {
		part, err := withOnes.Where(subset.Filter)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to select subset %s", subset.Key)
		}
		if part.Nrow() == 0 {
			s.logger.Warn("subset %s is empty; its means are NaN", subset.Key)
		}

		for i, col := range rows {
			values, err := part.Column(col)
			if err != nil {
				return nil, apperrors.Wrapf(err, "failed to read column %s", col)
			}
			if i == last {
				cells[i][j] = sumOrZero(values)
			} else {
				cells[i][j] = meanOrNaN(values)
			}
		}
	}

	for i := range cells {
		for j := range cells[i] {
			cells[i][j] = roundCell(cells[i][j])
		}
	}

	s.logger.Debug("summary table built: %d rows x %d subsets", len(rows), len(subsets))
	return summary.NewTable(rows, subsets, cells)
}

func meanOrNaN(values []float64) float64 {
	mean, err := stats.Mean(values)
	if errors.Is(err, stats.ErrEmptyInput) {
		return math.NaN()
	}
	return mean
}

// sumOrZero follows the empty-sum convention: zero rows count as zero
func sumOrZero(values []float64) float64 {
	sum, err := stats.Sum(values)
	if errors.Is(err, stats.ErrEmptyInput) {
		return 0
	}
	return sum
}

// roundCell rounds half to even at summary.Decimals, so 0.125 becomes 0.12 and 0.375 becomes 0.38
func roundCell(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow10(summary.Decimals)
	return math.RoundToEven(v*scale) / scale
}
