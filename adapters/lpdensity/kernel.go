package lpdensity

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// kernel is a symmetric weight function supported on [-1, 1]
type kernel struct {
	name string
	fn   func(u float64) float64
}

func kernelByName(name string) (kernel, error) {
	switch strings.ToLower(name) {
	case "", "triangular":
		return kernel{name: "triangular", fn: func(u float64) float64 {
			if math.Abs(u) > 1 {
				return 0
			}
			return 1 - math.Abs(u)
		}}, nil
	case "epanechnikov":
		return kernel{name: "epanechnikov", fn: func(u float64) float64 {
			if math.Abs(u) > 1 {
				return 0
			}
			return 0.75 * (1 - u*u)
		}}, nil
	case "uniform":
		return kernel{name: "uniform", fn: func(u float64) float64 {
			if math.Abs(u) > 1 {
				return 0
			}
			return 0.5
		}}, nil
	}
	return kernel{}, fmt.Errorf("unknown kernel %q", name)
}

// kernelConstants are the asymptotic bias and variance constants of a local fit of order p
// estimating the v-th derivative of the CDF
type kernelConstants struct {
	// biasOrder k: the leading bias is proportional to h^(k-v) times F^(k)
	biasOrder int
	B         float64
	V         float64
}

// quadNodes makes Gauss-Legendre exact for the piecewise polynomials integrated here
const quadNodes = 24

// integrate splits at zero so the kink of the triangular kernel falls on a panel boundary
func integrate(f func(float64) float64, a, b float64) float64 {
	if b <= a {
		return 0
	}
	if a < 0 && b > 0 {
		return quad.Fixed(f, a, 0, quadNodes, nil, 0) + quad.Fixed(f, 0, b, quadNodes, nil, 0)
	}
	return quad.Fixed(f, a, b, quadNodes, nil, 0)
}

func computeConstants(k kernel, p, v int) (kernelConstants, error) {
	if v > p {
		return kernelConstants{}, fmt.Errorf("derivative %d needs polynomial order >= %d, got %d", v, v, p)
	}

	moments := make([]float64, 2*p+3)
	for j := range moments {
		power := float64(j)
		moments[j] = integrate(func(u float64) float64 { return math.Pow(u, power) * k.fn(u) }, -1, 1)
	}

	s := mat.NewSymDense(p+1, nil)
	for a := 0; a <= p; a++ {
		for b := a; b <= p; b++ {
			s.SetSym(a, b, moments[a+b])
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return kernelConstants{}, fmt.Errorf("kernel moment matrix of order %d is not positive definite", p)
	}
	var sInv mat.SymDense
	if err := chol.InverseTo(&sInv); err != nil {
		return kernelConstants{}, err
	}

	biasFor := func(order int) float64 {
		sum := 0.0
		for a := 0; a <= p; a++ {
			sum += sInv.At(v, a) * moments[order+a]
		}
		return sum / factorial(order)
	}

	consts := kernelConstants{biasOrder: p + 1, B: biasFor(p + 1)}
	if math.Abs(consts.B) < 1e-10 {
		// symmetric kernels cancel the first bias term when p-v is even
		consts.biasOrder = p + 2
		consts.B = biasFor(p + 2)
	}

	gamma := func(t float64) float64 {
		sum := 0.0
		for a := 0; a <= p; a++ {
			power := float64(a)
			tail := integrate(func(u float64) float64 { return math.Pow(u, power) * k.fn(u) }, t, 1)
			sum += sInv.At(v, a) * tail
		}
		return sum
	}
	consts.V = integrate(func(t float64) float64 {
		g := gamma(t)
		return g * g
	}, -1, 1)

	if !(consts.V > 0) || math.IsNaN(consts.B) {
		return kernelConstants{}, fmt.Errorf("degenerate kernel constants for p=%d v=%d", p, v)
	}
	return consts, nil
}

func factorial(n int) float64 {
	out := 1.0
	for i := 2; i <= n; i++ {
		out *= float64(i)
	}
	return out
}
