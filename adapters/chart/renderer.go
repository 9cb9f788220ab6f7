package chart

import (
	"context"
	"fmt"
	"io"
	"math"

	"jtpadensity/domain/plotspec"
	"jtpadensity/ports"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	FormatPNG = "png"
	FormatSVG = "svg"

	defaultWidth  = 900
	defaultHeight = 560
)

// Renderer draws plot specs with go-chart: ribbons as gray filled polygons, lines in black
type Renderer struct {
	format        string
	width, height int
}

var _ ports.PlotRenderer = (*Renderer)(nil)

// NewRenderer creates a renderer for png or svg output
func NewRenderer(format string) (*Renderer, error) {
	switch format {
	case FormatPNG, FormatSVG:
	case "":
		format = FormatPNG
	default:
		return nil, fmt.Errorf("unsupported plot format %q", format)
	}
	return &Renderer{format: format, width: defaultWidth, height: defaultHeight}, nil
}

// Format returns the file extension of the rendered output
func (r *Renderer) Format() string {
	return r.format
}

// ContentType returns the MIME type of the rendered output
func (r *Renderer) ContentType() string {
	if r.format == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Render draws the layers back to front in the order the spec holds them
func (r *Renderer) Render(ctx context.Context, spec plotspec.Spec, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	layers := spec.Layers()
	if len(layers) == 0 {
		return fmt.Errorf("plot %q has no layers", spec.Title())
	}

	series := make([]gochart.Series, 0, len(layers))
	for _, l := range layers {
		switch l.Kind {
		case plotspec.KindRibbon:
			if s, ok := ribbonSeries(l); ok {
				series = append(series, s)
			}
		case plotspec.KindLine:
			if s, ok := lineSeries(l); ok {
				series = append(series, s)
			}
		default:
			return fmt.Errorf("unknown layer kind %q", l.Kind)
		}
	}
	if len(series) == 0 {
		return fmt.Errorf("plot %q has no finite points", spec.Title())
	}

	xMin, xMax := spec.XDomain()
	yMin, yMax := yAxisRange(spec)

	graph := gochart.Chart{
		Title:      spec.Title(),
		Width:      r.width,
		Height:     r.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  spec.XLabel(),
			Range: &gochart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: gochart.YAxis{
			Name:  spec.YLabel(),
			Range: &gochart.ContinuousRange{Min: yMin, Max: yMax * 1.05},
		},
		Series: series,
	}

	provider := gochart.PNG
	if r.format == FormatSVG {
		provider = gochart.SVG
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("failed to render %s: %w", r.format, err)
	}
	return nil
}

// ribbonSeries traces the upper bound forward and the lower bound backward so the
// fill covers exactly the band. go-chart only fills when a stroke is set, so the
// stroke is transparent.
func ribbonSeries(l plotspec.Layer) (gochart.ContinuousSeries, bool) {
	var xs, upper, lower []float64
	for i, x := range l.X {
		if !finite(x) || !finite(l.YMin[i]) || !finite(l.YMax[i]) {
			continue
		}
		xs = append(xs, x)
		upper = append(upper, floorZero(l.YMax[i]))
		lower = append(lower, floorZero(l.YMin[i]))
	}
	if len(xs) < 2 {
		return gochart.ContinuousSeries{}, false
	}

	px := append([]float64{}, xs...)
	py := append([]float64{}, upper...)
	for i := len(xs) - 1; i >= 0; i-- {
		px = append(px, xs[i])
		py = append(py, lower[i])
	}

	return gochart.ContinuousSeries{
		Name:    l.Name,
		XValues: px,
		YValues: py,
		Style: gochart.Style{
			FillColor:   drawing.ColorFromHex("808080").WithAlpha(uint8(math.Round(l.Alpha * 255))),
			StrokeColor: drawing.ColorTransparent,
			StrokeWidth: 1,
		},
	}, true
}

func lineSeries(l plotspec.Layer) (gochart.ContinuousSeries, bool) {
	var xs, ys []float64
	for i, x := range l.X {
		if finite(x) && finite(l.Y[i]) {
			xs = append(xs, x)
			ys = append(ys, floorZero(l.Y[i]))
		}
	}
	if len(xs) < 2 {
		return gochart.ContinuousSeries{}, false
	}
	return gochart.ContinuousSeries{
		Name:    l.Name,
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: drawing.ColorBlack,
			StrokeWidth: 1.5,
		},
	}, true
}

// yAxisRange pins the density axis at 0. Values below 0 are drawn on the axis.
func yAxisRange(spec plotspec.Spec) (float64, float64) {
	_, yMax := spec.YRange()
	if !(yMax > 0) {
		yMax = 1
	}
	return 0, yMax
}

func floorZero(v float64) float64 {
	return math.Max(v, 0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
