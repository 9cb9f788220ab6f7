package lpdensity

import (
	"fmt"
	"math"
	"sort"

	"jtpadensity/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// sample is the sorted design shared by every local fit of one request
type sample struct {
	x []float64
	// c holds the counterfactual weights rescaled to mean one
	c []float64
	// cdf is the weighted empirical distribution function at x, ties included
	cdf []float64
	// tieStart is the first sorted position holding the same value
	tieStart []int
	n        int
	mass     float64
}

func newSample(data, weights []float64) (*sample, error) {
	n := len(data)
	if n == 0 {
		return nil, core.NewInsufficientDataError("sample", 0, 1)
	}
	if weights != nil && len(weights) != n {
		return nil, fmt.Errorf("%w: %d weights for %d observations", core.ErrInvalidSample, len(weights), n)
	}

	idx := make([]int, n)
	for i := range idx {
		if math.IsNaN(data[i]) || math.IsInf(data[i], 0) {
			return nil, fmt.Errorf("%w: observation %d is %v", core.ErrInvalidSample, i, data[i])
		}
		if weights != nil && (math.IsNaN(weights[i]) || weights[i] < 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", core.ErrInvalidSample, i, weights[i])
		}
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return data[idx[a]] < data[idx[b]] })

	s := &sample{
		x:        make([]float64, n),
		c:        make([]float64, n),
		cdf:      make([]float64, n),
		tieStart: make([]int, n),
		n:        n,
	}
	for pos, i := range idx {
		s.x[pos] = data[i]
		s.c[pos] = 1
		if weights != nil {
			s.c[pos] = weights[i]
		}
	}

	s.mass = floats.Sum(s.c)
	if !(s.mass > 0) {
		return nil, fmt.Errorf("%w: weights sum to zero", core.ErrInsufficientData)
	}
	floats.Scale(float64(n)/s.mass, s.c)

	cum := 0.0
	for start := 0; start < n; {
		end := start
		for end < n && s.x[end] == s.x[start] {
			cum += s.c[end]
			end++
		}
		for i := start; i < end; i++ {
			s.cdf[i] = cum / float64(n)
			s.tieStart[i] = start
		}
		start = end
	}
	return s, nil
}

// moments are the weighted mean and standard deviation used by the normal reference
func (s *sample) moments() (float64, float64) {
	return stat.MeanStdDev(s.x, s.c)
}

// window returns the half-open sorted range with |x - x0| <= h
func (s *sample) window(x0, h float64) (int, int) {
	lo := sort.SearchFloat64s(s.x, x0-h)
	hi := sort.Search(s.n, func(i int) bool { return s.x[i] > x0+h })
	return lo, hi
}

// nearestDistance is the distance from x0 to its k-th nearest observation
func (s *sample) nearestDistance(x0 float64, k int) float64 {
	if k > s.n {
		k = s.n
	}
	if k <= 0 {
		return 0
	}
	// merge outward from the insertion point
	right := sort.SearchFloat64s(s.x, x0)
	left := right - 1
	d := 0.0
	for taken := 0; taken < k; taken++ {
		switch {
		case left < 0:
			d = s.x[right] - x0
			right++
		case right >= s.n:
			d = x0 - s.x[left]
			left--
		case x0-s.x[left] <= s.x[right]-x0:
			d = x0 - s.x[left]
			left--
		default:
			d = s.x[right] - x0
			right++
		}
	}
	return d
}

// localFit is a weighted polynomial regression of the empirical CDF around one point
type localFit struct {
	x0    float64
	h     float64
	order int
	lo    int
	hi    int
	beta  []float64
	sInv  mat.SymDense
}

func (s *sample) fit(k kernel, x0, h float64, order int) (*localFit, error) {
	if !(h > 0) {
		return nil, fmt.Errorf("%w: bandwidth %v at %v", core.ErrInvalidSample, h, x0)
	}
	lo, hi := s.window(x0, h)
	if hi-lo < order+1 {
		return nil, core.NewInsufficientDataError(fmt.Sprintf("window around %.4g", x0), hi-lo, order+1)
	}

	dim := order + 1
	design := mat.NewSymDense(dim, nil)
	rhs := make([]float64, dim)
	r := make([]float64, dim)
	nf := float64(s.n)
	for i := lo; i < hi; i++ {
		u := (s.x[i] - x0) / h
		w := k.fn(u) / h / nf
		powers(u, r)
		for a := 0; a < dim; a++ {
			rhs[a] += r[a] * w * s.cdf[i]
			for b := a; b < dim; b++ {
				design.SetSym(a, b, design.At(a, b)+r[a]*r[b]*w)
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(design); !ok || chol.Cond() > 1e12 {
		return nil, fmt.Errorf("%w: order %d at %.4g with %d points", core.ErrSingularDesign, order, x0, hi-lo)
	}
	f := &localFit{x0: x0, h: h, order: order, lo: lo, hi: hi}
	if err := chol.InverseTo(&f.sInv); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSingularDesign, err)
	}
	var beta mat.VecDense
	beta.MulVec(&f.sInv, mat.NewVecDense(dim, rhs))
	f.beta = beta.RawVector().Data
	return f, nil
}

// derivative is the estimate of the v-th derivative of the CDF at x0
func (f *localFit) derivative(v int) float64 {
	return f.beta[v] * factorial(v) / math.Pow(f.h, float64(v))
}

// influence returns z with Var(derivative(v)) = sum z_j^2 and Cov between fits = sum z_j z'_j.
// The empirical CDF moves with every observation, so z is dense even outside the window.
func (s *sample) influence(k kernel, f *localFit, v int) []float64 {
	dim := f.order + 1
	row := make([]float64, dim)
	for a := 0; a < dim; a++ {
		row[a] = f.sInv.At(v, a)
	}

	nf := float64(s.n)
	r := make([]float64, dim)
	// suffix[i-lo] = sum over window positions >= i of the linear weight
	suffix := make([]float64, f.hi-f.lo+1)
	for i := f.hi - 1; i >= f.lo; i-- {
		u := (s.x[i] - f.x0) / f.h
		powers(u, r)
		suffix[i-f.lo] = suffix[i-f.lo+1] + floats.Dot(row, r)*k.fn(u)/f.h/nf
	}
	total := suffix[0]

	z := make([]float64, s.n)
	for j := 0; j < s.n; j++ {
		var t float64
		switch {
		case j < f.lo:
			t = total
		case j >= f.hi:
			t = 0
		default:
			t = suffix[s.tieStart[j]-f.lo]
		}
		z[j] = s.c[j] * t
	}

	mean := floats.Sum(z) / nf
	scale := factorial(v) / math.Pow(f.h, float64(v)) / nf
	for j := range z {
		z[j] = (z[j] - mean) * scale
	}
	return z
}

func powers(u float64, out []float64) {
	p := 1.0
	for a := range out {
		out[a] = p
		p *= u
	}
}
