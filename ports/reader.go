package ports

import (
	"context"

	"jtpadensity/domain/dataset"
)

// DatasetReader loads the input table once at startup
type DatasetReader interface {
	ReadDataset(ctx context.Context, path string, required []string) (*dataset.Dataset, error)
}
