package density

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()
	require.Len(t, g, 10)
	assert.Equal(t, 2.0, g[0])
	assert.Equal(t, 5.0, g[9])
	assert.InDelta(t, 3.0/9.0, g.Step(), 1e-12)

	for i := 1; i < len(g); i++ {
		assert.Greater(t, g[i], g[i-1], "grid must be strictly increasing")
		assert.InDelta(t, 3.0/9.0, g[i]-g[i-1], 1e-12)
	}
}

func TestNewGridRejectsBadInput(t *testing.T) {
	_, err := NewGrid(2, 5, 1)
	assert.Error(t, err)
	_, err = NewGrid(5, 2, 10)
	assert.Error(t, err)
}

func TestGridValuesIsACopy(t *testing.T) {
	g := DefaultGrid()
	v := g.Values()
	v[0] = -1
	assert.Equal(t, 2.0, g[0])
}
