package ports

import (
	"context"

	"jtpadensity/domain/density"
)

// DensityEstimator is the local-polynomial density estimation boundary. The pipeline only
// depends on this contract; numerical behavior belongs to the adapter.
type DensityEstimator interface {
	// Estimate fits the density of req.Sample at every grid point
	Estimate(ctx context.Context, req density.Request) (*density.Result, error)

	// ConfidenceBand returns one interval for the bias-corrected estimate per grid point.
	// Uniform bands hold simultaneously over the grid; otherwise they are pointwise.
	ConfidenceBand(ctx context.Context, res *density.Result, uniform bool) ([]density.Interval, error)
}
