package density

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Grid is an increasing sequence of evaluation points
type Grid []float64

// NewGrid returns n evenly spaced points from min to max inclusive
func NewGrid(min, max float64, n int) (Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("grid needs at least 2 points, got %d", n)
	}
	if !(max > min) {
		return nil, fmt.Errorf("grid max %g must exceed min %g", max, min)
	}
	g := Grid(floats.Span(make([]float64, n), min, max))
	g[0], g[n-1] = min, max
	return g, nil
}

// DefaultGrid is the 10-point grid on [2, 5] used for log income
func DefaultGrid() Grid {
	g, _ := NewGrid(2, 5, 10)
	return g
}

// Values returns a copy of the points
func (g Grid) Values() []float64 {
	return append([]float64(nil), g...)
}

// Step returns the spacing of an evenly spaced grid
func (g Grid) Step() float64 {
	if len(g) < 2 {
		return 0
	}
	return (g[len(g)-1] - g[0]) / float64(len(g)-1)
}
