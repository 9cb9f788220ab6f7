package lpdensity

import (
	"math"

	"jtpadensity/domain/density"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// selectBandwidths returns one bandwidth per grid point, already regularized
func (e *Estimator) selectBandwidths(s *sample, grid []float64, rule density.BandwidthRule) ([]float64, error) {
	var h []float64
	switch {
	case e.opts.Bandwidth > 0:
		h = make([]float64, len(grid))
		for i := range h {
			h[i] = e.opts.Bandwidth
		}
		return h, nil
	case rule.PlugIn():
		var err error
		if h, err = e.dpiBandwidths(s, grid, rule.Integrated()); err != nil {
			return nil, err
		}
	default:
		var err error
		if h, err = e.rotBandwidths(s, grid, e.opts.P, 1, rule.Integrated()); err != nil {
			return nil, err
		}
	}
	return e.regularize(s, grid, h, e.opts.P+1), nil
}

// rotBandwidths plugs a normal reference density into the MSE-optimal bandwidth for an
// order-p fit of the v-th CDF derivative
func (e *Estimator) rotBandwidths(s *sample, grid []float64, p, v int, integrated bool) ([]float64, error) {
	consts, err := e.constants(p, v)
	if err != nil {
		return nil, err
	}
	mean, sd := s.moments()
	if !(sd > 0) {
		sd = 1
	}

	dens := make([]float64, len(grid))
	curv := make([]float64, len(grid))
	for i, x := range grid {
		dens[i] = normalDerivative(x, mean, sd, 0)
		curv[i] = normalDerivative(x, mean, sd, consts.biasOrder-1)
	}
	return optimalBandwidths(consts, v, s.n, dens, curv, integrated, sd), nil
}

// dpiBandwidths replaces the normal reference by pilot local fits of a higher order
func (e *Estimator) dpiBandwidths(s *sample, grid []float64, integrated bool) ([]float64, error) {
	consts, err := e.constants(e.opts.P, 1)
	if err != nil {
		return nil, err
	}
	k := consts.biasOrder
	pilotOrder := k + 1

	pilot, err := e.rotBandwidths(s, grid, pilotOrder, k, integrated)
	if err != nil {
		return nil, err
	}
	pilot = e.regularize(s, grid, pilot, pilotOrder)

	mean, sd := s.moments()
	if !(sd > 0) {
		sd = 1
	}
	dens := make([]float64, len(grid))
	curv := make([]float64, len(grid))
	for i, x := range grid {
		f, err := s.fit(e.kernel, x, pilot[i], pilotOrder)
		if err != nil {
			e.logger.Debug("pilot fit at %.4g failed, using normal reference: %v", x, err)
			dens[i] = normalDerivative(x, mean, sd, 0)
			curv[i] = normalDerivative(x, mean, sd, k-1)
			continue
		}
		dens[i] = math.Abs(f.derivative(1))
		curv[i] = f.derivative(k)
	}
	return optimalBandwidths(consts, 1, s.n, dens, curv, integrated, sd), nil
}

// optimalBandwidths balances squared bias h^(2(k-v)) B^2 D^2 against variance f V/(n h^(2v-1)).
// The integrated version sums both terms over the grid and returns one bandwidth.
func optimalBandwidths(c kernelConstants, v, n int, dens, curv []float64, integrated bool, scale float64) []float64 {
	k := c.biasOrder
	exponent := 1 / float64(2*k-1)
	fallback := scale * math.Pow(float64(n), -exponent)

	solve := func(f, d2 float64) float64 {
		num := float64(2*v-1) * c.V * f
		den := 2 * float64(k-v) * float64(n) * c.B * c.B * d2
		h := math.Pow(num/den, exponent)
		if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
			return fallback
		}
		return h
	}

	out := make([]float64, len(dens))
	if integrated {
		absDens := make([]float64, len(dens))
		for i, f := range dens {
			absDens[i] = math.Abs(f)
		}
		h := solve(floats.Sum(absDens), floats.Dot(curv, curv))
		for i := range out {
			out[i] = h
		}
		return out
	}
	for i := range out {
		out[i] = solve(math.Abs(dens[i]), curv[i]*curv[i])
	}
	return out
}

// regularize widens each bandwidth so the window holds at least 20+order+1 observations
func (e *Estimator) regularize(s *sample, grid, h []float64, order int) []float64 {
	need := e.opts.NLocalMin
	if need <= 0 {
		need = 20 + order + 1
	}
	out := make([]float64, len(h))
	for i, x := range grid {
		out[i] = math.Max(h[i], s.nearestDistance(x, need))
	}
	return out
}

// normalDerivative is the k-th derivative of the N(mean, sd^2) density at x
func normalDerivative(x, mean, sd float64, k int) float64 {
	z := (x - mean) / sd
	phi := distuv.UnitNormal.Prob(z)
	sign := 1.0
	if k%2 == 1 {
		sign = -1
	}
	return sign * hermite(k, z) * phi / math.Pow(sd, float64(k+1))
}

// hermite evaluates the probabilists' Hermite polynomial He_k
func hermite(k int, z float64) float64 {
	if k <= 0 {
		return 1
	}
	prev, cur := 1.0, z
	for n := 1; n < k; n++ {
		prev, cur = cur, z*cur-float64(n)*prev
	}
	return cur
}
