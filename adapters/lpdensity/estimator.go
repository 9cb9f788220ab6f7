package lpdensity

import (
	"context"
	"fmt"
	"math"
	"sync"

	"jtpadensity/domain/core"
	"jtpadensity/domain/density"
	"jtpadensity/internal"
	"jtpadensity/ports"

	"gonum.org/v1/gonum/floats"
)

// Options configures the estimator. Zero values take the defaults below.
type Options struct {
	P      int    // polynomial order of the point estimate (default 2); the bias-corrected fit uses P+1
	Kernel string // triangular, epanechnikov or uniform (default triangular)
	Level  float64
	Reps   int // simulation draws for uniform bands (default 2000)
	Seed   int64
	RunID  string

	// Bandwidth > 0 skips selection and uses this value at every grid point
	Bandwidth float64
	// NLocalMin is the minimum number of observations in each window (default 20+P+2)
	NLocalMin int
}

// DefaultOptions mirrors the replication settings
func DefaultOptions() Options {
	return Options{P: 2, Kernel: "triangular", Level: 95, Reps: 2000, Seed: 42}
}

// Estimator fits densities by local-polynomial regression of the weighted empirical CDF
type Estimator struct {
	opts   Options
	kernel kernel
	rng    ports.RNGPort
	logger *internal.Logger

	mu     sync.Mutex
	consts map[[2]int]kernelConstants
}

var _ ports.DensityEstimator = (*Estimator)(nil)

// NewEstimator creates an estimator; rng feeds the uniform-band simulation
func NewEstimator(opts Options, rng ports.RNGPort, logger *internal.Logger) (*Estimator, error) {
	defaults := DefaultOptions()
	if opts.P == 0 {
		opts.P = defaults.P
	}
	if opts.P < 1 {
		return nil, fmt.Errorf("polynomial order must be positive, got %d", opts.P)
	}
	if opts.Level == 0 {
		opts.Level = defaults.Level
	}
	if opts.Level <= 0 || opts.Level >= 100 {
		return nil, fmt.Errorf("confidence level must be in (0,100), got %g", opts.Level)
	}
	if opts.Reps <= 0 {
		opts.Reps = defaults.Reps
	}
	k, err := kernelByName(opts.Kernel)
	if err != nil {
		return nil, err
	}
	opts.Kernel = k.name
	if rng == nil {
		return nil, fmt.Errorf("rng port is required")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	return &Estimator{
		opts:   opts,
		kernel: k,
		rng:    rng,
		logger: logger,
		consts: make(map[[2]int]kernelConstants),
	}, nil
}

// Options returns the effective settings
func (e *Estimator) Options() Options {
	return e.opts
}

func (e *Estimator) constants(p, v int) (kernelConstants, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := [2]int{p, v}
	if c, ok := e.consts[key]; ok {
		return c, nil
	}
	c, err := computeConstants(e.kernel, p, v)
	if err != nil {
		return kernelConstants{}, err
	}
	e.consts[key] = c
	return c, nil
}

// Estimate fits orders P and P+1 at every grid point with a shared bandwidth
func (e *Estimator) Estimate(ctx context.Context, req density.Request) (*density.Result, error) {
	if len(req.Grid) == 0 {
		return nil, fmt.Errorf("%w: empty grid", core.ErrInvalidSample)
	}
	rule := req.Rule
	if rule == "" {
		rule = density.RuleIMSEDPI
	}

	s, err := newSample(req.Sample, req.Weights)
	if err != nil {
		return nil, err
	}
	p, q := e.opts.P, e.opts.P+1
	minimum := e.opts.NLocalMin
	if minimum <= 0 {
		minimum = 20 + q + 1
	}
	if s.n < minimum {
		return nil, core.NewInsufficientDataError(fmt.Sprintf("subset %s", req.Subset), s.n, minimum)
	}

	grid := req.Grid.Values()
	h, err := e.selectBandwidths(s, grid, rule)
	if err != nil {
		return nil, err
	}

	res := &density.Result{
		Subset:     req.Subset,
		N:          s.n,
		EffectiveN: s.mass,
		P:          p,
		Q:          q,
		V:          1,
		Kernel:     e.kernel.name,
		Rule:       rule,
		Points:     make([]density.Point, len(grid)),
	}
	zq := make([][]float64, len(grid))

	for i, x := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fitP, err := s.fit(e.kernel, x, h[i], p)
		if err != nil {
			return nil, err
		}
		fitQ, err := s.fit(e.kernel, x, h[i], q)
		if err != nil {
			return nil, err
		}
		zp := s.influence(e.kernel, fitP, 1)
		zq[i] = s.influence(e.kernel, fitQ, 1)

		res.Points[i] = density.Point{
			Grid:      x,
			Bandwidth: h[i],
			NH:        fitP.hi - fitP.lo,
			FP:        fitP.derivative(1),
			FQ:        fitQ.derivative(1),
			SEP:       math.Sqrt(floats.Dot(zp, zp)),
			SEQ:       math.Sqrt(floats.Dot(zq[i], zq[i])),
		}
	}

	res.CovQ = make([][]float64, len(grid))
	for i := range grid {
		res.CovQ[i] = make([]float64, len(grid))
		for j := 0; j <= i; j++ {
			c := floats.Dot(zq[i], zq[j])
			res.CovQ[i][j] = c
			res.CovQ[j][i] = c
		}
	}

	e.logger.Debug("estimated %s: n=%d bw=[%.4g..%.4g] rule=%s", req.Subset, s.n, floats.Min(h), floats.Max(h), rule)
	return res, nil
}
