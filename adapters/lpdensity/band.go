package lpdensity

import (
	"context"
	"fmt"
	"math"

	"jtpadensity/domain/density"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ConfidenceBand centers intervals on the bias-corrected estimate FQ with width from SEQ.
// The uniform critical value is the Level quantile of max|Z| over the grid, where Z is
// Gaussian with the correlation of FQ; draws come from the run's seeded stream.
func (e *Estimator) ConfidenceBand(ctx context.Context, res *density.Result, uniform bool) ([]density.Interval, error) {
	if res == nil {
		return nil, fmt.Errorf("nil estimate result")
	}

	crit := distuv.UnitNormal.Quantile(1 - (1-e.opts.Level/100)/2)
	if uniform {
		var err error
		if crit, err = e.uniformCritical(ctx, res); err != nil {
			return nil, err
		}
	}

	band := make([]density.Interval, len(res.Points))
	for i, p := range res.Points {
		band[i] = density.Interval{Lower: p.FQ - crit*p.SEQ, Upper: p.FQ + crit*p.SEQ}
	}
	return band, nil
}

func (e *Estimator) uniformCritical(ctx context.Context, res *density.Result) (float64, error) {
	m := len(res.Points)
	if len(res.CovQ) != m {
		return 0, fmt.Errorf("uniform band needs a %dx%d covariance, got %d rows", m, m, len(res.CovQ))
	}

	// grid points with a degenerate standard error cannot be standardized
	valid := make([]int, 0, m)
	for i, p := range res.Points {
		if len(res.CovQ[i]) != m {
			return 0, fmt.Errorf("covariance row %d has %d entries", i, len(res.CovQ[i]))
		}
		if p.SEQ > 0 && !math.IsInf(p.SEQ, 0) {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	corr := mat.NewSymDense(len(valid), nil)
	for a, i := range valid {
		for b := a; b < len(valid); b++ {
			j := valid[b]
			corr.SetSym(a, b, res.CovQ[i][j]/(res.Points[i].SEQ*res.Points[j].SEQ))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(corr, true); !ok {
		return 0, fmt.Errorf("eigen decomposition of the band correlation failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	for k, v := range values {
		values[k] = math.Sqrt(math.Max(v, 0))
	}
	var root mat.Dense
	root.Mul(&vectors, mat.NewDiagDense(len(values), values))

	rng, err := e.rng.Stream(ctx, e.opts.RunID, "uniform-band", res.Subset, e.opts.Seed)
	if err != nil {
		return 0, err
	}

	d := len(valid)
	draw := mat.NewVecDense(d, nil)
	var z mat.VecDense
	maxima := make([]float64, e.opts.Reps)
	for r := range maxima {
		if r%256 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		for k := 0; k < d; k++ {
			draw.SetVec(k, rng.NormFloat64())
		}
		z.MulVec(&root, draw)
		top := 0.0
		for k := 0; k < d; k++ {
			top = math.Max(top, math.Abs(z.AtVec(k)))
		}
		maxima[r] = top
	}

	crit, err := stats.Percentile(maxima, e.opts.Level)
	if err != nil {
		return 0, err
	}
	return crit, nil
}
