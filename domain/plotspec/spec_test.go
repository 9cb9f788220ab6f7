package plotspec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var x = []float64{2, 3, 4}

func TestBuilderIsImmutable(t *testing.T) {
	base := New("density").WithLabels("log income", "density")

	withRibbon, err := base.WithRibbon("all", x, []float64{0, 0, 0}, []float64{1, 1, 1}, 0.2)
	require.NoError(t, err)
	withLine, err := withRibbon.WithLine("all", x, []float64{0.5, 0.5, 0.5})
	require.NoError(t, err)

	assert.Empty(t, base.Layers())
	assert.Len(t, withRibbon.Layers(), 1)
	assert.Len(t, withLine.Layers(), 2)
	assert.Equal(t, "log income", withLine.XLabel())

	// branching from the same parent must not share backing arrays
	a, _ := withRibbon.WithLine("a", x, []float64{1, 1, 1})
	b, _ := withRibbon.WithLine("b", x, []float64{2, 2, 2})
	assert.Equal(t, "a", a.Layers()[1].Name)
	assert.Equal(t, "b", b.Layers()[1].Name)
}

func TestLayersAreCopies(t *testing.T) {
	input := []float64{0.1, 0.2, 0.3}
	spec, err := New("").WithLine("l", x, input)
	require.NoError(t, err)

	input[0] = 99
	layers := spec.Layers()
	layers[0].Y[1] = 99

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, spec.Layers()[0].Y)
}

func TestValidation(t *testing.T) {
	_, err := New("").WithRibbon("r", x, []float64{0}, []float64{1, 1, 1}, 0.2)
	assert.Error(t, err)
	_, err = New("").WithRibbon("r", x, []float64{0, 0, 0}, []float64{1, 1, 1}, 1.5)
	assert.Error(t, err)
	_, err = New("").WithLine("l", nil, nil)
	assert.Error(t, err)
}

func TestDomainsAndCounts(t *testing.T) {
	spec, _ := New("").WithRibbon("r", x, []float64{-1, 0, 0}, []float64{1, 2, 1}, 0.4)
	spec, _ = spec.WithLine("l", []float64{1, 2, 3}, []float64{0, 0.5, 0})

	lo, hi := spec.XDomain()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 4.0, hi)

	ylo, yhi := spec.YRange()
	assert.Equal(t, -1.0, ylo)
	assert.Equal(t, 2.0, yhi)

	assert.Equal(t, 1, spec.Count(KindRibbon))
	assert.Equal(t, 1, spec.Count(KindLine))
}

func TestMarshalJSON(t *testing.T) {
	spec, _ := New("t").WithLine("l", x, []float64{1, 2, 3})
	raw, err := json.Marshal(spec)
	require.NoError(t, err)

	var decoded struct {
		Title  string  `json:"title"`
		Layers []Layer `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "t", decoded.Title)
	require.Len(t, decoded.Layers, 1)
	assert.Equal(t, KindLine, decoded.Layers[0].Kind)
}
