package ports

import (
	"context"
	"io"

	"jtpadensity/domain/plotspec"
)

// PlotRenderer draws a plot specification in one image format
type PlotRenderer interface {
	Render(ctx context.Context, spec plotspec.Spec, w io.Writer) error
	// Format is the file extension the renderer produces, e.g. "png"
	Format() string
}
