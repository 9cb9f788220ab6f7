package app

import (
	"context"
	"fmt"

	"jtpadensity/domain/dataset"
	"jtpadensity/domain/density"
	"jtpadensity/domain/plotspec"
	"jtpadensity/internal"
	apperrors "jtpadensity/internal/errors"
	"jtpadensity/ports"

	"golang.org/x/sync/errgroup"
)

const (
	PlotTitle  = "Density of log income, treatment = 0"
	PlotXLabel = "logincome"
	PlotYLabel = "density"
)

// DensityOptions are the estimation settings shared by the three fits
type DensityOptions struct {
	Grid    density.Grid
	Rule    density.BandwidthRule
	Uniform bool
}

// DefaultDensityOptions returns the replication settings
func DefaultDensityOptions() DensityOptions {
	return DensityOptions{Grid: density.DefaultGrid(), Rule: density.RuleIMSEDPI, Uniform: true}
}

// DensityService estimates the education-split densities and composes the overlay plot
type DensityService struct {
	estimator ports.DensityEstimator
	opts      DensityOptions
	logger    *internal.Logger
}

// Fit is one estimated subset with its extracted records
type Fit struct {
	Subset  density.Subset
	Result  *density.Result
	Records []density.Record
}

// Assembly is the output of Assemble: three fits in plotting order and the plot spec
type Assembly struct {
	Fits []Fit
	Spec plotspec.Spec
}

// Records returns the extracted records keyed by subset
func (a *Assembly) Records() map[string][]density.Record {
	out := make(map[string][]density.Record, len(a.Fits))
	for _, f := range a.Fits {
		out[f.Subset.Key] = f.Records
	}
	return out
}

// Fit returns the fit of one subset
func (a *Assembly) Fit(key string) (Fit, bool) {
	for _, f := range a.Fits {
		if f.Subset.Key == key {
			return f, true
		}
	}
	return Fit{}, false
}

// NewDensityService creates a density service
func NewDensityService(estimator ports.DensityEstimator, opts DensityOptions, logger *internal.Logger) *DensityService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if len(opts.Grid) == 0 {
		opts.Grid = density.DefaultGrid()
	}
	if opts.Rule == "" {
		opts.Rule = density.RuleIMSEDPI
	}
	return &DensityService{estimator: estimator, opts: opts, logger: logger}
}

// Requests builds one estimation request per education subset from the treatment == 0 rows.
// Every request uses the whole control sample; subsets differ only in their weights.
func (s *DensityService) Requests(ds *dataset.Dataset) ([]density.Request, error) {
	if ds == nil {
		return nil, apperrors.InvalidInput("dataset is required")
	}
	for _, col := range []string{dataset.ColTreatment, dataset.ColLogIncome, dataset.ColHSorGED} {
		if !ds.HasColumn(col) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("density input is missing column %s", col))
		}
	}

	controls, err := ds.Where(dataset.Filter{Column: dataset.ColTreatment, Value: 0})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select the treatment = 0 sample")
	}
	sample, err := controls.Column(dataset.ColLogIncome)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read logincome")
	}
	if len(sample) == 0 {
		s.logger.Warn("treatment = 0 sample is empty")
	}

	requests := make([]density.Request, len(density.EducationSubsets))
	for i, subset := range density.EducationSubsets {
		req := density.Request{
			Subset: subset.Key,
			Sample: sample,
			Rule:   s.opts.Rule,
			Grid:   s.opts.Grid,
		}
		if !subset.Weight.IsAll() {
			if req.Weights, err = controls.Indicator(subset.Weight.Column, subset.Weight.Value); err != nil {
				return nil, apperrors.Wrapf(err, "failed to build weights for %s", subset.Key)
			}
		}
		requests[i] = req
	}
	return requests, nil
}

// Assemble runs the three fits concurrently and composes the overlay plot.
// The first estimator failure cancels the others and fails the assembly.
func (s *DensityService) Assemble(ctx context.Context, ds *dataset.Dataset) (*Assembly, error) {
	requests, err := s.Requests(ds)
	if err != nil {
		return nil, err
	}

	fits := make([]Fit, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		subset := density.EducationSubsets[i]
		g.Go(func() error {
			fit, err := s.fit(gctx, subset, req)
			if err != nil {
				return apperrors.EstimationFailed(subset.Key, err)
			}
			fits[i] = fit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("density assembly failed: %v", err)
		return nil, err
	}

	spec, err := BuildPlotSpec(fits)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to compose the density plot")
	}
	return &Assembly{Fits: fits, Spec: spec}, nil
}

func (s *DensityService) fit(ctx context.Context, subset density.Subset, req density.Request) (Fit, error) {
	res, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		return Fit{}, err
	}
	band, err := s.estimator.ConfidenceBand(ctx, res, s.opts.Uniform)
	if err != nil {
		return Fit{}, err
	}
	records, err := density.Extract(res, band)
	if err != nil {
		return Fit{}, err
	}
	s.logger.Debug("fitted %s on %d observations", subset.Key, res.N)
	return Fit{Subset: subset, Result: res, Records: records}, nil
}

// BuildPlotSpec layers every confidence ribbon first, then every f_p line, in fit order
func BuildPlotSpec(fits []Fit) (plotspec.Spec, error) {
	spec := plotspec.New(PlotTitle).WithLabels(PlotXLabel, PlotYLabel)
	var err error
	for _, f := range fits {
		x, lower, upper := column(f.Records, func(r density.Record) float64 { return r.Grid }),
			column(f.Records, func(r density.Record) float64 { return r.CIL }),
			column(f.Records, func(r density.Record) float64 { return r.CIR })
		if spec, err = spec.WithRibbon(f.Subset.Key, x, lower, upper, f.Subset.Alpha); err != nil {
			return spec, err
		}
	}
	for _, f := range fits {
		x, y := column(f.Records, func(r density.Record) float64 { return r.Grid }),
			column(f.Records, func(r density.Record) float64 { return r.FP })
		if spec, err = spec.WithLine(f.Subset.Key, x, y); err != nil {
			return spec, err
		}
	}
	return spec, nil
}

func column(records []density.Record, get func(density.Record) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = get(r)
	}
	return out
}
