package ports

import (
	"context"

	"jtpadensity/domain/core"
	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"
)

// ResultRepository persists finished runs
type ResultRepository interface {
	SaveRun(ctx context.Context, manifest *run.Manifest, table *summary.Table, densities map[string][]density.Record) error
	GetRun(ctx context.Context, runID core.RunID) (*run.Manifest, error)
	ListRuns(ctx context.Context, limit int) ([]run.Manifest, error)
	GetDensity(ctx context.Context, runID core.RunID, subset string) ([]density.Record, error)
}
