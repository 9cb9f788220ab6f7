package ports

import (
	"context"

	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"
)

// DensityExport is one fitted subset as handed to exporters
type DensityExport struct {
	Subset  density.Subset
	Result  *density.Result
	Records []density.Record
}

// RunExport is everything a finished run hands to exporters. Nil parts were not computed.
type RunExport struct {
	Manifest   *run.Manifest
	Table      *summary.Table
	Densities  []DensityExport
	Plot       []byte
	PlotFormat string
}

// ResultExporter writes run outputs somewhere durable and returns what it wrote
type ResultExporter interface {
	Export(ctx context.Context, dir string, out RunExport) ([]string, error)
}
