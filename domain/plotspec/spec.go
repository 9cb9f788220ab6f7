// Package plotspec describes layered overlay charts as immutable values. A Spec is built by
// appending ribbon and line layers; renderers turn it into an image.
package plotspec

import (
	"encoding/json"
	"fmt"
	"math"
)

// LayerKind distinguishes the drawable layer types
type LayerKind string

const (
	KindRibbon LayerKind = "ribbon"
	KindLine   LayerKind = "line"
)

// Layer is one drawable. Ribbons use YMin/YMax, lines use Y.
type Layer struct {
	Kind  LayerKind `json:"kind"`
	Name  string    `json:"name"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y,omitempty"`
	YMin  []float64 `json:"ymin,omitempty"`
	YMax  []float64 `json:"ymax,omitempty"`
	Alpha float64   `json:"alpha"`
}

// Spec is an immutable chart description
type Spec struct {
	title  string
	xLabel string
	yLabel string
	layers []Layer
}

// New starts an empty spec
func New(title string) Spec {
	return Spec{title: title}
}

// WithLabels returns a copy with axis labels set
func (s Spec) WithLabels(x, y string) Spec {
	out := s.clone()
	out.xLabel, out.yLabel = x, y
	return out
}

// WithRibbon returns a copy with a shaded band between ymin and ymax appended
func (s Spec) WithRibbon(name string, x, ymin, ymax []float64, alpha float64) (Spec, error) {
	if len(x) == 0 || len(ymin) != len(x) || len(ymax) != len(x) {
		return s, fmt.Errorf("ribbon %q: x, ymin and ymax lengths differ (%d, %d, %d)", name, len(x), len(ymin), len(ymax))
	}
	if alpha < 0 || alpha > 1 {
		return s, fmt.Errorf("ribbon %q: alpha %g outside [0,1]", name, alpha)
	}
	out := s.clone()
	out.layers = append(out.layers, Layer{
		Kind:  KindRibbon,
		Name:  name,
		X:     copyFloats(x),
		YMin:  copyFloats(ymin),
		YMax:  copyFloats(ymax),
		Alpha: alpha,
	})
	return out, nil
}

// WithLine returns a copy with an opaque line appended
func (s Spec) WithLine(name string, x, y []float64) (Spec, error) {
	if len(x) == 0 || len(y) != len(x) {
		return s, fmt.Errorf("line %q: x and y lengths differ (%d, %d)", name, len(x), len(y))
	}
	out := s.clone()
	out.layers = append(out.layers, Layer{
		Kind:  KindLine,
		Name:  name,
		X:     copyFloats(x),
		Y:     copyFloats(y),
		Alpha: 1,
	})
	return out, nil
}

func (s Spec) Title() string  { return s.title }
func (s Spec) XLabel() string { return s.xLabel }
func (s Spec) YLabel() string { return s.yLabel }

// Layers returns the layers back to front. The slices are copies.
func (s Spec) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.clone()
	}
	return out
}

// Count returns how many layers of the kind the spec holds
func (s Spec) Count(kind LayerKind) int {
	n := 0
	for _, l := range s.layers {
		if l.Kind == kind {
			n++
		}
	}
	return n
}

// XDomain returns the smallest and largest x over all layers
func (s Spec) XDomain() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range s.layers {
		for _, x := range l.X {
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
	}
	return lo, hi
}

// YRange returns the smallest and largest finite y over all layers
func (s Spec) YRange() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	visit := func(vs []float64) {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	for _, l := range s.layers {
		visit(l.Y)
		visit(l.YMin)
		visit(l.YMax)
	}
	return lo, hi
}

// MarshalJSON exposes the spec to the JSON API
func (s Spec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title  string  `json:"title"`
		XLabel string  `json:"x_label"`
		YLabel string  `json:"y_label"`
		Layers []Layer `json:"layers"`
	}{s.title, s.xLabel, s.yLabel, s.Layers()})
}

func (s Spec) clone() Spec {
	out := s
	out.layers = append([]Layer(nil), s.layers...)
	return out
}

func (l Layer) clone() Layer {
	l.X = copyFloats(l.X)
	l.Y = copyFloats(l.Y)
	l.YMin = copyFloats(l.YMin)
	l.YMax = copyFloats(l.YMax)
	return l
}

func copyFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
